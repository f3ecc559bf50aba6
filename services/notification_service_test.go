package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAnsweredRequest(t *testing.T, env *testEnv) *models.DesignRequest {
	t.Helper()
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.db, "die-cut", 1500)
	idea := testutil.SeedQuestion(t, env.db, product.ID, "What should we draw?", models.QuestionTypeTextarea, 1, true)
	finish := testutil.SeedQuestion(t, env.db, product.ID, "Finish", models.QuestionTypeMultipleChoice, 2, false)
	attachTemplate(t, env.db, finish, testutil.SeedStaticTemplate(t, env.db, models.OptionItem{ID: "matte", Name: "Matte"}))
	upload := testutil.SeedQuestion(t, env.db, product.ID, "Reference image", models.QuestionTypeFileUpload, 3, false)

	req := testutil.SeedDesignRequest(t, env.db, product.ID, "fan@example.com", models.StatusDraft)
	_, err := env.requests.Update(ctx, UpdateDesignRequestInput{
		ID: req.ID,
		Answers: rawAnswers(t, map[uuid.UUID]interface{}{
			idea.ID:   "A <b>bold</b> fox",
			finish.ID: "matte",
			upload.ID: "https://storage.test/designs/fox.png",
		}),
	})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(req).Updates(map[string]interface{}{"status": models.StatusPaid, "amount_cents": 1350}).Error)
	return req
}

func TestNotificationService_Render(t *testing.T) {
	env := newTestEnv(t)
	req := seedAnsweredRequest(t, env)

	customer, admin, err := env.notifications.Render(context.Background(), req.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"fan@example.com"}, customer.To)
	assert.Equal(t, "Sticker Studio <orders@stickerstudio.test>", customer.From)
	assert.Contains(t, customer.Subject, req.DesignCode)
	assert.Contains(t, customer.HTML, "Product die-cut")
	assert.Contains(t, customer.HTML, "13.50 USD")
	assert.Contains(t, customer.HTML, "Matte")
	assert.Contains(t, customer.HTML, `href="https://storage.test/designs/fox.png"`)
	assert.Contains(t, customer.HTML, "A &lt;b&gt;bold&lt;/b&gt; fox", "answers are escaped in html")
	assert.Contains(t, customer.Text, "A <b>bold</b> fox")
	assert.Contains(t, customer.Text, "Finish\n  Matte")

	assert.Equal(t, []string{"admin@stickerstudio.test"}, admin.To)
	assert.Contains(t, admin.Subject, "Product die-cut")
	assert.Contains(t, admin.Text, "Customer: fan@example.com")
	assert.Contains(t, admin.Text, "Status: PAID")

	_, _, err = env.notifications.Render(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestNotificationService_AdminFailureDoesNotBlockCustomer(t *testing.T) {
	env := newTestEnv(t)
	req := seedAnsweredRequest(t, env)
	env.mailer.FailTo["admin@stickerstudio.test"] = errors.New("smtp down")

	err := env.notifications.SendConfirmation(context.Background(), req.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin")
	assert.Len(t, env.mailer.SentTo("fan@example.com"), 1)
	assert.Empty(t, env.mailer.SentTo("admin@stickerstudio.test"))
}

func TestNotificationService_SkipsCustomerWithoutEmail(t *testing.T) {
	env := newTestEnv(t)
	product := testutil.SeedProduct(t, env.db, "holo", 900)
	req := testutil.SeedDesignRequest(t, env.db, product.ID, "", models.StatusPaid)

	require.NoError(t, env.notifications.SendConfirmation(context.Background(), req.ID))
	require.Len(t, env.mailer.Sent, 1)
	assert.Equal(t, []string{"admin@stickerstudio.test"}, env.mailer.Sent[0].To)
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/sticker-studio/sticker-studio-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesignFileService_UploadSavesAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.db, "die-cut", 1500)
	q := testutil.SeedQuestion(t, env.db, product.ID, "Reference image", models.QuestionTypeFileUpload, 1, false)
	req := testutil.SeedDesignRequest(t, env.db, product.ID, "fan@example.com", models.StatusDraft)

	res, err := env.files.Upload(ctx, DesignFileUpload{
		File:            testutil.FileHeader(t, "My Cat.png", testutil.PNGOfSize(2048)),
		DesignRequestID: &req.ID,
		QuestionID:      &q.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.AnswerSaved)
	assert.Equal(t, "image/png", res.ContentType)
	assert.EqualValues(t, 2048, res.Size)
	assert.True(t, strings.HasPrefix(res.Key, "design-requests/"+req.ID.String()+"/"))
	assert.True(t, env.storage.FileExists(res.Key))

	current, err := env.requestRepo.CurrentAnswers(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.NotNil(t, current[0].AnswerFileURL)
	assert.Equal(t, res.URL, *current[0].AnswerFileURL)
}

func TestDesignFileService_StandaloneUpload(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.files.Upload(context.Background(), DesignFileUpload{
		File: testutil.FileHeader(t, "idea.png", testutil.PNGOfSize(100)),
	})
	require.NoError(t, err)
	assert.False(t, res.AnswerSaved)
	assert.True(t, strings.HasPrefix(res.Key, "design-requests/unassigned/"))
}

func TestDesignFileService_RejectsOversizedFileBeforeStorage(t *testing.T) {
	env := newTestEnv(t)
	product := testutil.SeedProduct(t, env.db, "die-cut", 1500)
	q := testutil.SeedQuestion(t, env.db, product.ID, "Reference image", models.QuestionTypeFileUpload, 1, false)
	req := testutil.SeedDesignRequest(t, env.db, product.ID, "fan@example.com", models.StatusDraft)

	_, err := env.files.Upload(context.Background(), DesignFileUpload{
		File:            testutil.FileHeader(t, "huge.png", testutil.PNGOfSize(6*1024*1024)),
		DesignRequestID: &req.ID,
		QuestionID:      &q.ID,
	})
	var uploadErr *utils.FileUploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "FILE_TOO_LARGE", uploadErr.Code)
	assert.Empty(t, env.storage.Objects())
	assert.Zero(t, countVersions(t, env, req.ID, q.ID))
}

func TestDesignFileService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.db, "die-cut", 1500)
	other := testutil.SeedProduct(t, env.db, "holo", 900)
	foreign := testutil.SeedQuestion(t, env.db, other.ID, "Other image", models.QuestionTypeFileUpload, 1, false)
	q := testutil.SeedQuestion(t, env.db, product.ID, "Reference image", models.QuestionTypeFileUpload, 1, false)
	req := testutil.SeedDesignRequest(t, env.db, product.ID, "fan@example.com", models.StatusDraft)
	paid := testutil.SeedDesignRequest(t, env.db, product.ID, "fan@example.com", models.StatusPaid)
	png := func() DesignFileUpload {
		return DesignFileUpload{File: testutil.FileHeader(t, "a.png", testutil.PNGOfSize(64))}
	}

	in := png()
	in.DesignRequestID, in.QuestionID = &req.ID, &foreign.ID
	_, err := env.files.Upload(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = png()
	missing := uuid.New()
	in.DesignRequestID = &missing
	_, err = env.files.Upload(ctx, in)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	in = png()
	in.DesignRequestID, in.QuestionID = &paid.ID, &q.ID
	_, err = env.files.Upload(ctx, in)
	assert.ErrorIs(t, err, ErrConflict)

	in = png()
	in.File = testutil.FileHeader(t, "notes.png", []byte("just some text, not an image"))
	_, err = env.files.Upload(ctx, in)
	var uploadErr *utils.FileUploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "INVALID_FILE_TYPE", uploadErr.Code)

	env.storage.FailUpload = errors.New("bucket unavailable")
	_, err = env.files.Upload(ctx, png())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, env.storage.Objects())
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func attachTemplate(t *testing.T, db *gorm.DB, q *models.RequestQuestion, tpl *models.OptionTemplate) {
	t.Helper()
	require.NoError(t, db.Model(q).Update("option_template_id", tpl.ID).Error)
}

func TestQuestionService_ResolvesOptionSources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.db, "die-cut", 1500)
	other := testutil.SeedProduct(t, env.db, "holo", 900)
	testutil.SeedProduct(t, env.db, models.HiddenDefaultProductSlug, 200)

	static := testutil.SeedStaticTemplate(t, env.db, models.OptionItem{ID: "matte", Name: "Matte"}, models.OptionItem{ID: "gloss", Name: "Gloss"})
	finish := testutil.SeedQuestion(t, env.db, product.ID, "Finish", models.QuestionTypeMultipleChoice, 1, true)
	attachTemplate(t, env.db, finish, static)

	global := &models.DesignStyle{Name: "Kawaii", IsActive: true, SortOrder: 2}
	scoped := &models.DesignStyle{ProductID: &product.ID, Name: "Retro", IsActive: true, SortOrder: 1}
	foreign := &models.DesignStyle{ProductID: &other.ID, Name: "Noir", IsActive: true}
	require.NoError(t, env.db.Create(global).Error)
	require.NoError(t, env.db.Create(scoped).Error)
	require.NoError(t, env.db.Create(foreign).Error)
	stylesTpl := &models.OptionTemplate{Name: "styles", SourceType: models.SourceDesignStyles}
	require.NoError(t, env.db.Create(stylesTpl).Error)
	style := testutil.SeedQuestion(t, env.db, product.ID, "Art style", models.QuestionTypeStyle, 2, true)
	attachTemplate(t, env.db, style, stylesTpl)

	for i, name := range []string{"Circle", "Star"} {
		require.NoError(t, env.db.Create(&models.QuestionDemoItem{QuestionSlug: "sticker_shape", Name: name, IsActive: true, SortOrder: i}).Error)
	}
	require.NoError(t, env.db.Create(&models.QuestionDemoItem{QuestionSlug: "shape", Name: "Legacy heart", IsActive: true}).Error)
	demoTpl := &models.OptionTemplate{Name: "shapes", SourceType: models.SourceDemoItems, DemoItemSlug: "sticker_shape"}
	legacyTpl := &models.OptionTemplate{Name: "legacy shapes", SourceType: models.SourceDemoItems}
	require.NoError(t, env.db.Create(demoTpl).Error)
	require.NoError(t, env.db.Create(legacyTpl).Error)
	shape := testutil.SeedQuestion(t, env.db, product.ID, "Outline", models.QuestionTypeMultipleChoice, 3, false)
	attachTemplate(t, env.db, shape, demoTpl)
	legacy := testutil.SeedQuestion(t, env.db, product.ID, "Pick a shape", models.QuestionTypeMultipleChoice, 4, false)
	attachTemplate(t, env.db, legacy, legacyTpl)

	productsTpl := &models.OptionTemplate{Name: "products", SourceType: models.SourceProducts}
	require.NoError(t, env.db.Create(productsTpl).Error)
	pick := testutil.SeedQuestion(t, env.db, product.ID, "Also interested in", models.QuestionTypeMultipleChoice, 5, false)
	attachTemplate(t, env.db, pick, productsTpl)

	broken := testutil.SeedQuestion(t, env.db, product.ID, "Broken", models.QuestionTypeMultipleChoice, 6, false)
	missing := uuid.New()
	require.NoError(t, env.db.Model(broken).Update("option_template_id", missing).Error)

	inactive := testutil.SeedQuestion(t, env.db, product.ID, "Hidden", models.QuestionTypeText, 7, false)
	require.NoError(t, env.db.Model(inactive).Update("is_active", false).Error)

	got, questions, err := env.questions.ListForProduct(ctx, ProductRef{Slug: "die-cut"})
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)
	require.Len(t, questions, 6)

	names := func(items []models.OptionItem) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Matte", "Gloss"}, names(questions[0].OptionItems))
	assert.Equal(t, models.SourceStatic, questions[0].OptionSource)
	assert.Equal(t, []string{"Retro", "Kawaii"}, names(questions[1].OptionItems))
	assert.Equal(t, []string{"Circle", "Star"}, names(questions[2].OptionItems))
	assert.Equal(t, []string{"Legacy heart"}, names(questions[3].OptionItems))
	assert.Equal(t, []string{"Product holo"}, names(questions[4].OptionItems), "hidden and current products are not selectable")
	assert.Equal(t, other.ID.String(), questions[4].OptionItems[0].ID)
	assert.Empty(t, questions[5].OptionItems, "a missing template degrades to no options")
}

func TestQuestionService_ProductLookupErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.questions.ListForProduct(ctx, ProductRef{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = env.questions.ListForProduct(ctx, ProductRef{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrProductNotFound)

	p := testutil.SeedProduct(t, env.db, "retired", 100)
	require.NoError(t, env.db.Model(p).Update("is_active", false).Error)
	_, _, err = env.questions.ListForProduct(ctx, ProductRef{Slug: "retired"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestQuestionService_CustomQuestionsNesting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	outer := &models.CustomTemplate{Name: "Outer"}
	inner := &models.CustomTemplate{Name: "Inner"}
	require.NoError(t, env.db.Create(outer).Error)
	require.NoError(t, env.db.Create(inner).Error)

	require.NoError(t, env.db.Create(&models.CustomQuestion{TemplateID: outer.ID, QuestionText: "Describe it", QuestionType: models.QuestionTypeText, SortOrder: 1}).Error)
	require.NoError(t, env.db.Create(&models.CustomQuestion{TemplateID: outer.ID, QuestionText: "Add a character", QuestionType: models.QuestionTypeText, SortOrder: 2, CustomTemplateID: &inner.ID}).Error)
	// inner points back at outer: a cycle
	require.NoError(t, env.db.Create(&models.CustomQuestion{TemplateID: inner.ID, QuestionText: "Character name", QuestionType: models.QuestionTypeText, SortOrder: 1, CustomTemplateID: &outer.ID}).Error)

	flow, err := env.questions.CustomQuestions(ctx, outer.ID)
	require.NoError(t, err)
	require.Len(t, flow.Questions, 2)
	assert.Nil(t, flow.Questions[0].SubFlow)
	require.NotNil(t, flow.Questions[1].SubFlow)
	assert.Equal(t, "Inner", flow.Questions[1].SubFlow.Name)
	require.Len(t, flow.Questions[1].SubFlow.Questions, 1)
	assert.True(t, flow.Questions[1].SubFlow.Questions[0].HasCustomFlow)
	assert.Nil(t, flow.Questions[1].SubFlow.Questions[0].SubFlow, "cycles are cut")

	labels, err := env.questions.CustomLabels(ctx, outer.ID)
	require.NoError(t, err)
	assert.Len(t, labels, 3)

	_, err = env.questions.CustomQuestions(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestQuestionService_CustomQuestionsDepthLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	templates := make([]*models.CustomTemplate, MaxCustomFlowDepth+2)
	for i := range templates {
		templates[i] = &models.CustomTemplate{Name: "Level"}
		require.NoError(t, env.db.Create(templates[i]).Error)
	}
	for i := 0; i < len(templates)-1; i++ {
		next := templates[i+1].ID
		require.NoError(t, env.db.Create(&models.CustomQuestion{TemplateID: templates[i].ID, QuestionText: "Deeper", QuestionType: models.QuestionTypeText, CustomTemplateID: &next}).Error)
	}

	flow, err := env.questions.CustomQuestions(ctx, templates[0].ID)
	require.NoError(t, err)
	depth := 0
	for f := flow; f != nil; {
		depth++
		if len(f.Questions) == 0 {
			break
		}
		f = f.Questions[0].SubFlow
	}
	assert.Equal(t, MaxCustomFlowDepth, depth)
}

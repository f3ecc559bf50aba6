package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	ListActiveByProduct(ctx context.Context, productID uuid.UUID) ([]models.RequestQuestion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.RequestQuestion, error)
	GetOptionTemplate(ctx context.Context, id uuid.UUID) (*models.OptionTemplate, error)
	ListStyles(ctx context.Context, productID uuid.UUID) ([]models.DesignStyle, error)
	GetStyle(ctx context.Context, id uuid.UUID) (*models.DesignStyle, error)
	ListDemoItems(ctx context.Context, slug string) ([]models.QuestionDemoItem, error)
	GetCustomTemplate(ctx context.Context, id uuid.UUID) (*models.CustomTemplate, error)
}

type questionRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepository(db *gorm.DB, baseLog *logger.Logger) QuestionRepository {
	return &questionRepository{db: db, log: baseLog.With("repo", "QuestionRepository")}
}

func (r *questionRepository) ListActiveByProduct(ctx context.Context, productID uuid.UUID) ([]models.RequestQuestion, error) {
	var out []models.RequestQuestion
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("sort_order ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RequestQuestion, error) {
	var q models.RequestQuestion
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&q).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (r *questionRepository) GetOptionTemplate(ctx context.Context, id uuid.UUID) (*models.OptionTemplate, error) {
	var t models.OptionTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// ListStyles returns active styles scoped to the product plus global ones
func (r *questionRepository) ListStyles(ctx context.Context, productID uuid.UUID) ([]models.DesignStyle, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if productID != uuid.Nil {
		q = q.Where("product_id = ? OR product_id IS NULL", productID)
	} else {
		q = q.Where("product_id IS NULL")
	}
	var out []models.DesignStyle
	if err := q.Order("sort_order ASC, name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepository) GetStyle(ctx context.Context, id uuid.UUID) (*models.DesignStyle, error) {
	var s models.DesignStyle
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *questionRepository) ListDemoItems(ctx context.Context, slug string) ([]models.QuestionDemoItem, error) {
	var out []models.QuestionDemoItem
	err := r.db.WithContext(ctx).
		Where("question_slug = ? AND is_active = ?", slug, true).
		Order("sort_order ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepository) GetCustomTemplate(ctx context.Context, id uuid.UUID) (*models.CustomTemplate, error) {
	var t models.CustomTemplate
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Where("id = ?", id).
		Take(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"gorm.io/gorm"
)

type AILogRepository interface {
	Create(ctx context.Context, entry *models.AIGenerationLog) error
}

type aiLogRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAILogRepository(db *gorm.DB, baseLog *logger.Logger) AILogRepository {
	return &aiLogRepository{db: db, log: baseLog.With("repo", "AILogRepository")}
}

func (r *aiLogRepository) Create(ctx context.Context, entry *models.AIGenerationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

type FAQRepository interface {
	Create(ctx context.Context, sub *models.FAQSubmission) error
	List(ctx context.Context, status string, limit, offset int) ([]models.FAQSubmission, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.FAQSubmission, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
}

type faqRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFAQRepository(db *gorm.DB, baseLog *logger.Logger) FAQRepository {
	return &faqRepository{db: db, log: baseLog.With("repo", "FAQRepository")}
}

func (r *faqRepository) Create(ctx context.Context, sub *models.FAQSubmission) error {
	if sub.Status == "" {
		sub.Status = models.FAQStatusNew
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *faqRepository) List(ctx context.Context, status string, limit, offset int) ([]models.FAQSubmission, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.FAQSubmission{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.FAQSubmission
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *faqRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FAQSubmission, error) {
	var sub models.FAQSubmission
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *faqRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.FAQSubmission{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

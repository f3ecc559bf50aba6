package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"gorm.io/gorm"
)

type DiscountRepository interface {
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	// IncrementUsage counts one use; false when the usage cap is already reached
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
}

type discountRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiscountRepository(db *gorm.DB, baseLog *logger.Logger) DiscountRepository {
	return &discountRepository{db: db, log: baseLog.With("repo", "DiscountRepository")}
}

// NormalizeCode returns the stored form of a discount code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *discountRepository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var d models.DiscountCode
	if err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).Take(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *discountRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	return incrementUsage(r.db.WithContext(ctx), id)
}

// incrementUsage is a single conditional UPDATE so concurrent settlements
// cannot push used_count past max_uses
func incrementUsage(db *gorm.DB, id uuid.UUID) (bool, error) {
	res := db.Model(&models.DiscountCode{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"gorm.io/gorm"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListActive(ctx context.Context, category string) ([]models.Product, error)
	// ListSelectable returns active, non-hidden products other than excludeID,
	// optionally restricted to one catalog template
	ListSelectable(ctx context.Context, excludeID uuid.UUID, templateID *uuid.UUID) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]models.ProductCategory, error)
	GetCategory(ctx context.Context, slug string) (*models.ProductCategory, error)
}

type productRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepository(db *gorm.DB, baseLog *logger.Logger) ProductRepository {
	return &productRepository{db: db, log: baseLog.With("repo", "ProductRepository")}
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productRepository) ListActive(ctx context.Context, category string) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Where("is_active = ? AND is_hidden = ?", true, false)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []models.Product
	if err := q.Order("sort_order ASC, title ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepository) ListSelectable(ctx context.Context, excludeID uuid.UUID, templateID *uuid.UUID) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Where("is_active = ? AND is_hidden = ?", true, false)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if templateID != nil {
		q = q.Where("template_id = ?", *templateID)
	}
	var out []models.Product
	if err := q.Order("sort_order ASC, title ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepository) ListCategories(ctx context.Context) ([]models.ProductCategory, error) {
	var out []models.ProductCategory
	if err := r.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepository) GetCategory(ctx context.Context, slug string) (*models.ProductCategory, error) {
	var c models.ProductCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).Take(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

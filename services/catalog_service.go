package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

// ProductRef identifies a product by id or slug; the id wins when both are set
type ProductRef struct {
	ID   uuid.UUID
	Slug string
}

func (r ProductRef) IsZero() bool {
	return r.ID == uuid.Nil && r.Slug == ""
}

// CatalogService serves the store pages
type CatalogService interface {
	ListProducts(ctx context.Context, category string) ([]models.Product, error)
	GetProduct(ctx context.Context, ref ProductRef) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.ProductCategory, error)
	CategoryProducts(ctx context.Context, slug string) (*models.ProductCategory, []models.Product, error)
}

type catalogService struct {
	products repositories.ProductRepository
	log      *logger.Logger
}

func NewCatalogService(products repositories.ProductRepository, baseLog *logger.Logger) CatalogService {
	return &catalogService{products: products, log: baseLog.With("service", "CatalogService")}
}

func (s *catalogService) ListProducts(ctx context.Context, category string) ([]models.Product, error) {
	products, err := s.products.ListActive(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, ref ProductRef) (*models.Product, error) {
	return loadProduct(ctx, s.products, ref)
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.ProductCategory, error) {
	return s.products.ListCategories(ctx)
}

func (s *catalogService) CategoryProducts(ctx context.Context, slug string) (*models.ProductCategory, []models.Product, error) {
	category, err := s.products.GetCategory(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
		}
		return nil, nil, err
	}
	products, err := s.ListProducts(ctx, category.Slug)
	if err != nil {
		return nil, nil, err
	}
	return category, products, nil
}

// loadProduct resolves a ProductRef; inactive products are treated as missing
func loadProduct(ctx context.Context, repo repositories.ProductRepository, ref ProductRef) (*models.Product, error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: productId or productSlug is required", ErrInvalidInput)
	}
	var (
		p   *models.Product
		err error
	)
	if ref.ID != uuid.Nil {
		p, err = repo.GetByID(ctx, ref.ID)
	} else {
		p, err = repo.GetBySlug(ctx, ref.Slug)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	if !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

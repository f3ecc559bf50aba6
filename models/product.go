package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HiddenDefaultProductSlug is the catch-all product used when the customer picks
// the actual product from inside the questionnaire
const HiddenDefaultProductSlug = "general_default_hidden"

// Product represents a catalog entry
type Product struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string     `gorm:"not null" json:"title"`
	Subtitle    string     `json:"subtitle"`
	Description string     `gorm:"type:text" json:"description"`
	PriceCents  int64      `gorm:"not null;check:price_cents >= 0" json:"price_cents"`
	Currency    string     `gorm:"not null;default:'usd'" json:"currency"`
	ImageURL    string     `json:"image_url"`
	Category    string     `gorm:"index" json:"category"`
	TemplateID  *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"` // catalog theme, also used to filter product-choice questions
	IsActive    bool       `gorm:"not null" json:"is_active"`
	IsHidden    bool       `gorm:"not null" json:"is_hidden"`
	SortOrder   int        `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// IsHiddenDefault reports whether this is the questionnaire-only catch-all product
func (p *Product) IsHiddenDefault() bool {
	return p.Slug == HiddenDefaultProductSlug
}

// ProductCategory groups products for the store pages
type ProductCategory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the ProductCategory model
func (ProductCategory) TableName() string {
	return "product_categories"
}

func (c *ProductCategory) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

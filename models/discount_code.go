package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Discount types
const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// DiscountCode is a promotional code. DiscountValue is a percentage for
// percent codes and an amount in cents for fixed codes.
type DiscountCode struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code            string     `gorm:"uniqueIndex;not null" json:"code"` // stored upper-case
	DiscountType    string     `gorm:"not null" json:"discount_type"`
	DiscountValue   int64      `gorm:"not null;check:discount_value >= 0" json:"discount_value"`
	MaxUses         *int       `json:"max_uses,omitempty"`
	UsedCount       int        `gorm:"not null;default:0" json:"used_count"`
	MinOrderCents   int64      `gorm:"not null;default:0" json:"min_order_cents"`
	RestrictedEmail *string    `json:"restricted_email,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the DiscountCode model
func (DiscountCode) TableName() string {
	return "discount_codes"
}

func (d *DiscountCode) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// AmountOff returns the discount for the given base amount, never more than the base
func (d *DiscountCode) AmountOff(baseCents int64) int64 {
	if baseCents <= 0 {
		return 0
	}
	var off int64
	switch d.DiscountType {
	case DiscountPercent:
		pct := d.DiscountValue
		if pct > 100 {
			pct = 100
		}
		// round half up to the nearest cent
		off = (baseCents*pct + 50) / 100
	case DiscountFixed:
		off = d.DiscountValue
	}
	if off > baseCents {
		off = baseCents
	}
	if off < 0 {
		off = 0
	}
	return off
}

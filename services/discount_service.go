package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

// DiscountQuote is the server-side price calculation for one order
type DiscountQuote struct {
	Valid          bool       `json:"valid"`
	Code           string     `json:"code,omitempty"`
	BaseCents      int64      `json:"base_amount"`
	DiscountCents  int64      `json:"discount_amount"`
	FinalCents     int64      `json:"final_amount"`
	Message        string     `json:"message"`
	DiscountCodeID *uuid.UUID `json:"-"`
}

type DiscountService interface {
	// Quote prices an order. A code that fails a business rule yields a quote
	// with Valid false and a message; errors are reserved for lookups failing.
	Quote(ctx context.Context, code, email string, baseCents int64) (*DiscountQuote, error)
}

type discountService struct {
	discounts repositories.DiscountRepository
	log       *logger.Logger
	now       func() time.Time
}

func NewDiscountService(discounts repositories.DiscountRepository, baseLog *logger.Logger) DiscountService {
	return &discountService{
		discounts: discounts,
		log:       baseLog.With("service", "DiscountService"),
		now:       time.Now,
	}
}

func (s *discountService) Quote(ctx context.Context, code, email string, baseCents int64) (*DiscountQuote, error) {
	if baseCents < 0 {
		return nil, fmt.Errorf("%w: base amount must not be negative", ErrInvalidInput)
	}
	quote := &DiscountQuote{BaseCents: baseCents, FinalCents: baseCents}

	code = repositories.NormalizeCode(code)
	if code == "" {
		quote.Message = "No discount code applied"
		return quote, nil
	}
	quote.Code = code

	d, err := s.discounts.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			quote.Message = "Discount code not found"
			return quote, nil
		}
		return nil, fmt.Errorf("find discount code: %w", err)
	}

	if msg := s.reject(d, email, baseCents); msg != "" {
		quote.Message = msg
		return quote, nil
	}

	off := d.AmountOff(baseCents)
	quote.Valid = true
	quote.DiscountCents = off
	quote.FinalCents = finalAmount(baseCents, off)
	quote.DiscountCodeID = &d.ID
	quote.Message = "Discount applied"
	return quote, nil
}

// reject returns why the code cannot be used, empty when it can
func (s *discountService) reject(d *models.DiscountCode, email string, baseCents int64) string {
	switch {
	case !d.IsActive:
		return "Discount code is no longer active"
	case d.ExpiresAt != nil && !s.now().Before(*d.ExpiresAt):
		return "Discount code has expired"
	case d.MaxUses != nil && d.UsedCount >= *d.MaxUses:
		return "Discount code has reached its usage limit"
	case baseCents < d.MinOrderCents:
		return fmt.Sprintf("Order total must be at least %s to use this code", formatCents(d.MinOrderCents))
	case d.RestrictedEmail != nil && *d.RestrictedEmail != "" &&
		!strings.EqualFold(strings.TrimSpace(*d.RestrictedEmail), strings.TrimSpace(email)):
		return "Discount code is not valid for this email address"
	}
	return ""
}

// finalAmount is never negative
func finalAmount(baseCents, discountCents int64) int64 {
	if f := baseCents - discountCents; f > 0 {
		return f
	}
	return 0
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

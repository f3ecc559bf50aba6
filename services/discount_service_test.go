package services

import (
	"context"
	"testing"
	"time"

	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountService_Quote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testutil.SeedDiscount(t, env.db, "TEN", models.DiscountPercent, 10)
	testutil.SeedDiscount(t, env.db, "FIVEOFF", models.DiscountFixed, 500)

	expired := testutil.SeedDiscount(t, env.db, "OLD", models.DiscountPercent, 50)
	require.NoError(t, env.db.Model(expired).Update("expires_at", time.Now().Add(-time.Hour)).Error)
	inactive := testutil.SeedDiscount(t, env.db, "OFF", models.DiscountPercent, 50)
	require.NoError(t, env.db.Model(inactive).Update("is_active", false).Error)
	usedUp := testutil.SeedDiscount(t, env.db, "ONCE", models.DiscountPercent, 50)
	require.NoError(t, env.db.Model(usedUp).Updates(map[string]interface{}{"max_uses": 1, "used_count": 1}).Error)
	minimum := testutil.SeedDiscount(t, env.db, "BIG", models.DiscountFixed, 100)
	require.NoError(t, env.db.Model(minimum).Update("min_order_cents", 5000).Error)
	vip := testutil.SeedDiscount(t, env.db, "VIP", models.DiscountFixed, 100)
	require.NoError(t, env.db.Model(vip).Update("restricted_email", "vip@example.com").Error)

	tests := []struct {
		name     string
		code     string
		email    string
		valid    bool
		discount int64
		final    int64
		message  string
	}{
		{"no code", "", "", false, 0, 1500, "No discount code applied"},
		{"percent, lower case input", " ten ", "", true, 150, 1350, "Discount applied"},
		{"fixed", "FIVEOFF", "", true, 500, 1000, "Discount applied"},
		{"unknown", "NOPE", "", false, 0, 1500, "Discount code not found"},
		{"expired", "OLD", "", false, 0, 1500, "Discount code has expired"},
		{"inactive", "OFF", "", false, 0, 1500, "Discount code is no longer active"},
		{"usage limit", "ONCE", "", false, 0, 1500, "Discount code has reached its usage limit"},
		{"minimum order", "BIG", "", false, 0, 1500, "Order total must be at least $50.00 to use this code"},
		{"restricted email mismatch", "VIP", "someone@example.com", false, 0, 1500, "Discount code is not valid for this email address"},
		{"restricted email match", "VIP", "VIP@example.com", true, 100, 1400, "Discount applied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := env.discounts.Quote(ctx, tt.code, tt.email, 1500)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, q.Valid)
			assert.Equal(t, tt.discount, q.DiscountCents)
			assert.Equal(t, tt.final, q.FinalCents)
			assert.Equal(t, tt.message, q.Message)
			assert.Equal(t, tt.valid, q.DiscountCodeID != nil)
		})
	}

	_, err := env.discounts.Quote(ctx, "TEN", "", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDiscountService_FinalAmountNeverNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedDiscount(t, env.db, "ALL", models.DiscountPercent, 100)
	testutil.SeedDiscount(t, env.db, "TOOMUCH", models.DiscountPercent, 250)
	testutil.SeedDiscount(t, env.db, "SAVE20", models.DiscountFixed, 2000)
	testutil.SeedDiscount(t, env.db, "THIRD", models.DiscountPercent, 33)

	for _, code := range []string{"ALL", "TOOMUCH", "SAVE20", "THIRD"} {
		for base := int64(0); base <= 5000; base += 37 {
			q, err := env.discounts.Quote(ctx, code, "", base)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, q.FinalCents, int64(0), "%s at %d", code, base)
			assert.LessOrEqual(t, q.DiscountCents, base, "%s at %d", code, base)
			assert.Equal(t, base-q.DiscountCents, q.FinalCents, "%s at %d", code, base)
		}
	}

	q, err := env.discounts.Quote(ctx, "ALL", "", 1500)
	require.NoError(t, err)
	assert.Zero(t, q.FinalCents)
}

package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every :memory: connection is its own database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate test database")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// SeedProduct inserts an active product priced in cents
func SeedProduct(t *testing.T, db *gorm.DB, slug string, priceCents int64) *models.Product {
	t.Helper()
	p := &models.Product{
		Slug:       slug,
		Title:      "Product " + slug,
		Subtitle:   "Subtitle " + slug,
		PriceCents: priceCents,
		Currency:   "usd",
		IsActive:   true,
		IsHidden:   slug == models.HiddenDefaultProductSlug,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SeedQuestion inserts an active question for the product
func SeedQuestion(t *testing.T, db *gorm.DB, productID uuid.UUID, text, qType string, sortOrder int, required bool) *models.RequestQuestion {
	t.Helper()
	q := &models.RequestQuestion{
		ProductID:    productID,
		QuestionText: text,
		QuestionType: qType,
		IsRequired:   required,
		IsActive:     true,
		SortOrder:    sortOrder,
	}
	require.NoError(t, db.Create(q).Error)
	return q
}

// SeedStaticTemplate inserts a static option template with the given items
func SeedStaticTemplate(t *testing.T, db *gorm.DB, items ...models.OptionItem) *models.OptionTemplate {
	t.Helper()
	tpl := &models.OptionTemplate{
		Name:          "static",
		SourceType:    models.SourceStatic,
		StaticOptions: datatypes.JSONSlice[models.OptionItem](items),
	}
	require.NoError(t, db.Create(tpl).Error)
	return tpl
}

// SeedDiscount inserts an active discount code
func SeedDiscount(t *testing.T, db *gorm.DB, code, discountType string, value int64) *models.DiscountCode {
	t.Helper()
	d := &models.DiscountCode{
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: value,
		IsActive:      true,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

// SeedDesignRequest inserts a request in the given status
func SeedDesignRequest(t *testing.T, db *gorm.DB, productID uuid.UUID, email, status string) *models.DesignRequest {
	t.Helper()
	r := &models.DesignRequest{
		DesignCode: "SD-" + uuid.NewString()[:8],
		Email:      email,
		ProductID:  productID,
		Status:     status,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

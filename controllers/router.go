package controllers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/middleware"
	"github.com/sticker-studio/sticker-studio-api/services"
	"gorm.io/gorm"
)

const aiRateWindow = time.Minute

// RouterDeps holds everything the HTTP layer needs
type RouterDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Metrics *metrics.Metrics

	CORSOrigins []string
	// AdminAuth authenticates the admin routes; RequireScope runs after it
	AdminAuth gin.HandlerFunc
	Limiter   middleware.Limiter
	AIRate    int

	Catalog     services.CatalogService
	Questions   services.QuestionService
	Requests    services.DesignRequestService
	Payments    services.PaymentService
	Discounts   services.DiscountService
	Files       services.DesignFileService
	Inspiration services.InspirationService
	FAQ         services.FAQService
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
		middleware.Metrics(d.Metrics),
		gin.Recovery(),
	)
	if len(d.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  d.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	health := NewHealthController(d.DB, d.Log)
	catalog := NewCatalogController(d.Catalog, d.Questions, d.Log)
	requests := NewDesignRequestController(d.Requests, d.Log)
	payments := NewPaymentController(d.Payments, d.Discounts, d.Log)
	uploads := NewUploadController(d.Files, d.Log)
	inspiration := NewInspirationController(d.Inspiration, d.Log)
	faq := NewFAQController(d.FAQ, d.Log)

	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", health.Health)
		api.GET("/database/status", health.DatabaseStatus)

		api.GET("/products", catalog.ListProducts)
		api.GET("/products/:slug", catalog.GetProduct)
		api.GET("/categories", catalog.ListCategories)
		api.GET("/categories/:slug/products", catalog.CategoryProducts)
		api.GET("/design-styles", catalog.ListDesignStyles)
		api.GET("/request-questions", catalog.RequestQuestions)
		api.GET("/custom-questions", catalog.CustomQuestions)

		api.POST("/design-requests", requests.Create)
		api.PATCH("/design-requests", requests.Update)
		api.GET("/design-requests", requests.Get)
		api.GET("/design-requests/:id/summary", requests.Summary)

		api.POST("/upload-design-file", uploads.UploadDesignFile)
		api.POST("/ai-inspiration",
			middleware.RateLimit(d.Limiter, "ai-inspiration", d.AIRate, aiRateWindow, d.Log),
			inspiration.Generate,
		)

		api.POST("/validate-discount-code", payments.ValidateDiscountCode)
		api.POST("/create-checkout-session", payments.CreateCheckoutSession)
		api.POST("/create-payment-intent", payments.CreatePaymentIntent)
		api.POST("/zero-amount-payment", payments.ZeroAmountPayment)
		api.POST("/webhooks/stripe", payments.StripeWebhook)

		api.POST("/faq-submissions", faq.Submit)
	}

	admin := api.Group("")
	admin.Use(d.AdminAuth, middleware.RequireScope(middleware.AdminScope))
	{
		admin.GET("/faq-submissions", faq.List)
		admin.PATCH("/faq-submissions", faq.Update)
		admin.GET("/admin/analytics", requests.Analytics)
		admin.GET("/admin/design-requests/:id/events", requests.Events)
	}

	return router
}

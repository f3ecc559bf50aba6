package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sticker-studio/sticker-studio-api/config"
	"github.com/sticker-studio/sticker-studio-api/controllers"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/middleware"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"github.com/sticker-studio/sticker-studio-api/services"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("Starting Sticker Studio API server...", "env", cfg.GoEnv)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to connect to database", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		appLog.Fatal("Failed to migrate database", "error", err)
	}
	appLog.Info("Database migration completed successfully")

	m := metrics.New(cfg.MetricsPrefix)

	var redisClient *redis.Client
	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			appLog.Fatal("Invalid REDIS_URL", "error", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			appLog.Warn("Redis is unreachable, rate limiting fails open until it recovers", "error", err)
		}
		limiter = middleware.NewRedisLimiter(redisClient, "stickerstudio:ratelimit:")
	}

	deps, err := buildServices(cfg, db, m, appLog)
	if err != nil {
		appLog.Fatal("Failed to initialise services", "error", err)
	}
	deps.CORSOrigins = cfg.CORSOrigins
	deps.AdminAuth = adminAuth(cfg, appLog)
	deps.Limiter = limiter
	deps.AIRate = cfg.AIRateLimit

	router := controllers.NewRouter(deps)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("Server is running", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", "error", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				appLog.Info("Graceful shutdown initiated...")
				return srv.Shutdown(ctx)
			},
			"database": func(ctx context.Context) error {
				return config.CloseDatabase(db)
			},
			"redis": func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				return redisClient.Close()
			},
		},
	)

	exitCode := <-wait
	appLog.Info("Application exited", "code", exitCode)
	appLog.Sync()
	os.Exit(exitCode)
}

// buildServices wires repositories and services. Optional integrations are
// left nil when unconfigured and their routes answer 503.
func buildServices(cfg *config.Config, db *gorm.DB, m *metrics.Metrics, appLog *logger.Logger) (controllers.RouterDeps, error) {
	ctx := context.Background()

	productRepo := repositories.NewProductRepository(db, appLog)
	questionRepo := repositories.NewQuestionRepository(db, appLog)
	requestRepo, err := repositories.NewDesignRequestRepository(db, appLog)
	if err != nil {
		return controllers.RouterDeps{}, fmt.Errorf("design request repository: %w", err)
	}
	eventRepo := repositories.NewEventRepository(db, appLog)
	discountRepo := repositories.NewDiscountRepository(db, appLog)

	var mailer services.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = services.NewResendMailer(cfg.ResendAPIKey)
	} else {
		appLog.Warn("RESEND_API_KEY not set, emails are logged instead of sent")
		mailer = services.NewLogMailer(appLog)
	}

	var generator services.TextGenerator
	if cfg.GeminiAPIKey != "" {
		generator, err = services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return controllers.RouterDeps{}, fmt.Errorf("gemini client: %w", err)
		}
	} else {
		appLog.Warn("GEMINI_API_KEY not set, AI inspiration is disabled")
	}

	var storage services.StorageService
	if cfg.StorageBucket != "" {
		storage, err = services.NewS3StorageService(ctx, services.StorageConfig{
			Endpoint:        cfg.StorageEndpoint,
			Region:          cfg.StorageRegion,
			Bucket:          cfg.StorageBucket,
			AccessKeyID:     cfg.StorageAccessKeyID,
			SecretAccessKey: cfg.StorageSecretAccessKey,
			PublicURL:       cfg.StoragePublicURL,
		})
		if err != nil {
			return controllers.RouterDeps{}, fmt.Errorf("storage: %w", err)
		}
	} else {
		appLog.Warn("STORAGE_BUCKET not set, design uploads are disabled")
	}

	var directory services.AdminDirectory
	if cfg.Auth0Domain != "" {
		directory = services.NewAuth0Directory(cfg.Auth0Domain, appLog)
	}

	questions := services.NewQuestionService(productRepo, questionRepo, appLog)
	requests := services.NewDesignRequestService(requestRepo, eventRepo, productRepo, questions, m, appLog)
	discounts := services.NewDiscountService(discountRepo, appLog)
	notifications := services.NewNotificationService(
		requestRepo,
		services.NewSummaryBuilder(requestRepo, questions),
		mailer,
		services.NotificationConfig{From: cfg.EmailFrom, AdminEmail: cfg.AdminEmail},
		m,
		appLog,
	)
	payments := services.NewPaymentService(
		requestRepo,
		eventRepo,
		discountRepo,
		discounts,
		services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
		notifications,
		services.PaymentConfig{SiteURL: cfg.SiteURL, Currency: cfg.Currency},
		m,
		appLog,
	)

	return controllers.RouterDeps{
		DB:          db,
		Log:         appLog,
		Metrics:     m,
		Catalog:     services.NewCatalogService(productRepo, appLog),
		Questions:   questions,
		Requests:    requests,
		Payments:    payments,
		Discounts:   discounts,
		Files:       services.NewDesignFileService(storage, requestRepo, questionRepo, m, appLog),
		Inspiration: services.NewInspirationService(questionRepo, questions, productRepo, requestRepo, repositories.NewAILogRepository(db, appLog), generator, m, appLog),
		FAQ:         services.NewFAQService(repositories.NewFAQRepository(db, appLog), directory, appLog),
	}, nil
}

// adminAuth validates Auth0 tokens, or closes the admin routes when Auth0
// is not configured
func adminAuth(cfg *config.Config, appLog *logger.Logger) gin.HandlerFunc {
	if cfg.Auth0Domain == "" || cfg.Auth0Audience == "" {
		appLog.Warn("AUTH0_DOMAIN or AUTH0_AUDIENCE not set, admin routes are disabled")
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SERVICE_UNAVAILABLE",
					"message": "Admin authentication is not configured",
				},
			})
		}
	}
	return middleware.EnsureValidToken(cfg, appLog)
}

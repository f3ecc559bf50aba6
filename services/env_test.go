package services

import (
	"testing"

	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires every service against an in-memory database and mocks
type testEnv struct {
	db *gorm.DB

	productRepo  repositories.ProductRepository
	questionRepo repositories.QuestionRepository
	requestRepo  repositories.DesignRequestRepository
	eventRepo    repositories.EventRepository
	discountRepo repositories.DiscountRepository
	aiLogRepo    repositories.AILogRepository
	faqRepo      repositories.FAQRepository

	stripe    *MockStripeGateway
	mailer    *MockMailer
	storage   *MockStorageService
	generator *MockTextGenerator
	metrics   *metrics.Metrics

	questions     QuestionService
	requests      DesignRequestService
	discounts     DiscountService
	notifications NotificationService
	payments      PaymentService
	files         DesignFileService
	inspiration   InspirationService
	faq           FAQService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	db := testutil.NewTestDB(t)

	requestRepo, err := repositories.NewDesignRequestRepository(db, log)
	require.NoError(t, err)

	env := &testEnv{
		db:           db,
		productRepo:  repositories.NewProductRepository(db, log),
		questionRepo: repositories.NewQuestionRepository(db, log),
		requestRepo:  requestRepo,
		eventRepo:    repositories.NewEventRepository(db, log),
		discountRepo: repositories.NewDiscountRepository(db, log),
		aiLogRepo:    repositories.NewAILogRepository(db, log),
		faqRepo:      repositories.NewFAQRepository(db, log),
		stripe:       NewMockStripeGateway(),
		mailer:       NewMockMailer(),
		storage:      NewMockStorageService(),
		generator:    NewMockTextGenerator(`{"text": "A cat riding a comet", "placeholders": {}}`),
		metrics:      metrics.New("test"),
	}

	env.questions = NewQuestionService(env.productRepo, env.questionRepo, log)
	env.requests = NewDesignRequestService(env.requestRepo, env.eventRepo, env.productRepo, env.questions, env.metrics, log)
	env.discounts = NewDiscountService(env.discountRepo, log)
	env.notifications = NewNotificationService(
		env.requestRepo,
		NewSummaryBuilder(env.requestRepo, env.questions),
		env.mailer,
		NotificationConfig{From: "Sticker Studio <orders@stickerstudio.test>", AdminEmail: "admin@stickerstudio.test"},
		env.metrics,
		log,
	)
	env.payments = WithSyncDispatch(NewPaymentService(
		env.requestRepo,
		env.eventRepo,
		env.discountRepo,
		env.discounts,
		env.stripe,
		env.notifications,
		PaymentConfig{SiteURL: "https://stickerstudio.test", Currency: "usd"},
		env.metrics,
		log,
	))
	env.files = NewDesignFileService(env.storage, env.requestRepo, env.questionRepo, env.metrics, log)
	env.inspiration = NewInspirationService(env.questionRepo, env.questions, env.productRepo, env.requestRepo, env.aiLogRepo, env.generator, env.metrics, log)
	env.faq = NewFAQService(env.faqRepo, nil, log)
	return env
}

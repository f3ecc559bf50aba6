// Package testserver assembles the full HTTP stack over an in-memory
// database and mocked integrations for integration and acceptance tests.
package testserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/controllers"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/middleware"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// AdminSubject is the token subject the mock admin auth reports
const AdminSubject = "auth0|admin"

type Options struct {
	// AdminScopes are granted to every admin request; nil means AdminScope
	AdminScopes []string
	// AIRate is the per-minute inspiration limit; 0 disables limiting
	AIRate int
	// Gateway replaces the mock Stripe gateway, e.g. to verify real signatures
	Gateway services.StripeGateway
	// AdminAuth replaces the mock token middleware on admin routes
	AdminAuth gin.HandlerFunc
}

type Server struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Metrics   *metrics.Metrics
	Stripe    *services.MockStripeGateway
	Mailer    *services.MockMailer
	Storage   *services.MockStorageService
	Generator *services.MockTextGenerator
}

// New builds the router exactly as main does, swapping external services
// for mocks and running notifications inline.
func New(t *testing.T, opts Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	db := testutil.NewTestDB(t)
	m := metrics.New("it")

	s := &Server{
		DB:        db,
		Metrics:   m,
		Stripe:    services.NewMockStripeGateway(),
		Mailer:    services.NewMockMailer(),
		Storage:   services.NewMockStorageService(),
		Generator: services.NewMockTextGenerator(`{"text": "A fox surfing a rainbow", "placeholders": {}}`),
	}

	productRepo := repositories.NewProductRepository(db, log)
	questionRepo := repositories.NewQuestionRepository(db, log)
	requestRepo, err := repositories.NewDesignRequestRepository(db, log)
	require.NoError(t, err)
	eventRepo := repositories.NewEventRepository(db, log)
	discountRepo := repositories.NewDiscountRepository(db, log)

	questions := services.NewQuestionService(productRepo, questionRepo, log)
	discounts := services.NewDiscountService(discountRepo, log)
	notifications := services.NewNotificationService(
		requestRepo,
		services.NewSummaryBuilder(requestRepo, questions),
		s.Mailer,
		services.NotificationConfig{From: "Sticker Studio <orders@stickerstudio.test>", AdminEmail: "admin@stickerstudio.test"},
		m,
		log,
	)
	var gateway services.StripeGateway = s.Stripe
	if opts.Gateway != nil {
		gateway = opts.Gateway
	}
	payments := services.WithSyncDispatch(services.NewPaymentService(
		requestRepo,
		eventRepo,
		discountRepo,
		discounts,
		gateway,
		notifications,
		services.PaymentConfig{SiteURL: "https://stickerstudio.test", Currency: "usd"},
		m,
		log,
	))

	scopes := opts.AdminScopes
	if scopes == nil {
		scopes = []string{middleware.AdminScope}
	}
	adminAuth := opts.AdminAuth
	if adminAuth == nil {
		adminAuth = testutil.MockAuthMiddleware(AdminSubject, scopes...)
	}

	s.Router = controllers.NewRouter(controllers.RouterDeps{
		DB:          db,
		Log:         log,
		Metrics:     m,
		CORSOrigins: []string{"https://stickerstudio.test"},
		AdminAuth:   adminAuth,
		Limiter:     middleware.NewMemoryLimiter(),
		AIRate:      opts.AIRate,
		Catalog:     services.NewCatalogService(productRepo, log),
		Questions:   questions,
		Requests:    services.NewDesignRequestService(requestRepo, eventRepo, productRepo, questions, m, log),
		Payments:    payments,
		Discounts:   discounts,
		Files:       services.NewDesignFileService(s.Storage, requestRepo, questionRepo, m, log),
		Inspiration: services.NewInspirationService(questionRepo, questions, productRepo, requestRepo, repositories.NewAILogRepository(db, log), s.Generator, m, log),
		FAQ:         services.NewFAQService(repositories.NewFAQRepository(db, log), nil, log),
	})
	return s
}

// Do sends a request through the router. A non-nil body that is not an
// io.Reader is encoded as JSON.
func (s *Server) Do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// Upload posts a multipart form to the design file route
func (s *Server) Upload(t *testing.T, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := testutil.MultipartFile(t, "file", filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/upload-design-file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// Webhook posts a Stripe event with the given signature
func (s *Server) Webhook(t *testing.T, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// Envelope is the response wrapper every JSON route uses
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// Decode parses the envelope and, when out is non-nil, its data
func Decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	}
	return env
}

// ErrorCode returns the envelope's error code, empty on success
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := Decode(t, w, nil)
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

// StripeEvent builds a webhook payload the mock gateway can decode
func StripeEvent(t *testing.T, id, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"id":     id,
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return data
}

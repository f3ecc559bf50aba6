package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPayments records calls and returns canned results
type stubPayments struct {
	err          error
	lastID       uuid.UUID
	lastCode     string
	webhookBody  []byte
	webhookSig   string
	webhookReply string
}

func (s *stubPayments) Quote(ctx context.Context, requestID uuid.UUID, code string) (*services.DiscountQuote, error) {
	s.lastID, s.lastCode = requestID, code
	if s.err != nil {
		return nil, s.err
	}
	return &services.DiscountQuote{Valid: true, Code: strings.ToUpper(code), BaseCents: 1500, DiscountCents: 150, FinalCents: 1350}, nil
}

func (s *stubPayments) CreateCheckoutSession(ctx context.Context, requestID uuid.UUID, code string) (*services.CheckoutResult, error) {
	s.lastID, s.lastCode = requestID, code
	if s.err != nil {
		return nil, s.err
	}
	return &services.CheckoutResult{SessionID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (s *stubPayments) CreatePaymentIntent(ctx context.Context, requestID uuid.UUID, code string) (*services.IntentResult, error) {
	s.lastID, s.lastCode = requestID, code
	if s.err != nil {
		return nil, s.err
	}
	return &services.IntentResult{PaymentIntentID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

func (s *stubPayments) CompleteZeroAmount(ctx context.Context, requestID uuid.UUID, code string) (*services.ZeroAmountResult, error) {
	s.lastID, s.lastCode = requestID, code
	if s.err != nil {
		return nil, s.err
	}
	return &services.ZeroAmountResult{DesignCode: "SD-ABC123", Status: "PAID"}, nil
}

func (s *stubPayments) HandleWebhook(ctx context.Context, payload []byte, signature string) (*services.WebhookResult, error) {
	s.webhookBody, s.webhookSig = payload, signature
	if s.err != nil {
		return nil, s.err
	}
	return &services.WebhookResult{EventID: "evt_1", EventType: "checkout.session.completed", Result: s.webhookReply}, nil
}

type stubDiscounts struct {
	lastEmail string
	lastBase  int64
}

func (s *stubDiscounts) Quote(ctx context.Context, code, email string, baseCents int64) (*services.DiscountQuote, error) {
	s.lastEmail, s.lastBase = email, baseCents
	return &services.DiscountQuote{Valid: false, Code: code, BaseCents: baseCents, FinalCents: baseCents, Message: "Discount code has expired"}, nil
}

func newPaymentRouter(payments *stubPayments, discounts *stubDiscounts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentController(payments, discounts, logger.NewNop())
	router := gin.New()
	router.POST("/api/create-checkout-session", h.CreateCheckoutSession)
	router.POST("/api/create-payment-intent", h.CreatePaymentIntent)
	router.POST("/api/zero-amount-payment", h.ZeroAmountPayment)
	router.POST("/api/validate-discount-code", h.ValidateDiscountCode)
	router.POST("/api/webhooks/stripe", h.StripeWebhook)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaymentRoutes_Success(t *testing.T) {
	payments := &stubPayments{}
	router := newPaymentRouter(payments, &stubDiscounts{})
	id := uuid.New()

	tests := []struct {
		path   string
		expect string
	}{
		{"/api/create-checkout-session", "cs_test_1"},
		{"/api/create-payment-intent", "pi_test_1_secret"},
		{"/api/zero-amount-payment", "SD-ABC123"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := postJSON(router, tt.path, fmt.Sprintf(`{"designRequestId":%q,"discountCode":"ten"}`, id))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"success":true`)
			assert.Contains(t, w.Body.String(), tt.expect)
			assert.Equal(t, id, payments.lastID)
			assert.Equal(t, "ten", payments.lastCode)
		})
	}
}

func TestPaymentRoutes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing request id", `{}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed request id", `{"designRequestId":"nope"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"zero total", `{"designRequestId":"` + uuid.NewString() + `"}`, services.ErrZeroAmount, http.StatusBadRequest, "ZERO_AMOUNT"},
		{"bad code", `{"designRequestId":"` + uuid.NewString() + `","discountCode":"X"}`, fmt.Errorf("%w: code has expired", services.ErrInvalidDiscount), http.StatusBadRequest, "INVALID_DISCOUNT_CODE"},
		{"unknown request", `{"designRequestId":"` + uuid.NewString() + `"}`, services.ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND"},
		{"already paid", `{"designRequestId":"` + uuid.NewString() + `"}`, fmt.Errorf("%w: request is already paid", services.ErrConflict), http.StatusConflict, "INVALID_STATE"},
		{"stripe down", `{"designRequestId":"` + uuid.NewString() + `"}`, fmt.Errorf("%w: connection reset", services.ErrUpstream), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newPaymentRouter(&stubPayments{err: tt.err}, &stubDiscounts{})
			w := postJSON(router, "/api/create-checkout-session", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			code, msg := decodeError(t, w)
			assert.Equal(t, tt.wantCode, code)
			assert.NotContains(t, msg, "connection reset", "upstream details stay in the logs")
		})
	}
}

func TestValidateDiscountCode(t *testing.T) {
	t.Run("priced from the stored request", func(t *testing.T) {
		payments := &stubPayments{}
		router := newPaymentRouter(payments, &stubDiscounts{})
		id := uuid.New()

		w := postJSON(router, "/api/validate-discount-code", fmt.Sprintf(`{"code":"ten","designRequestId":%q}`, id))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data services.DiscountQuote `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.Valid)
		assert.Equal(t, int64(1350), resp.Data.FinalCents)
		assert.Equal(t, id, payments.lastID)
	})

	t.Run("priced from a bare amount", func(t *testing.T) {
		discounts := &stubDiscounts{}
		router := newPaymentRouter(&stubPayments{}, discounts)

		w := postJSON(router, "/api/validate-discount-code", `{"code":"OLD","email":"a@b.co","baseAmount":900}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"valid":false`)
		assert.Contains(t, w.Body.String(), "Discount code has expired")
		assert.Equal(t, "a@b.co", discounts.lastEmail)
		assert.Equal(t, int64(900), discounts.lastBase)
	})

	t.Run("needs something to price", func(t *testing.T) {
		router := newPaymentRouter(&stubPayments{}, &stubDiscounts{})
		w := postJSON(router, "/api/validate-discount-code", `{"code":"TEN"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStripeWebhook(t *testing.T) {
	t.Run("passes the raw body and signature", func(t *testing.T) {
		payments := &stubPayments{webhookReply: services.WebhookProcessed}
		router := newPaymentRouter(payments, &stubDiscounts{})
		payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true,"result":"processed"}`, w.Body.String())
		assert.Equal(t, payload, payments.webhookBody)
		assert.Equal(t, "t=1,v1=abc", payments.webhookSig)
	})

	t.Run("bad signature", func(t *testing.T) {
		router := newPaymentRouter(&stubPayments{err: services.ErrInvalidSignature}, &stubDiscounts{})
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		code, _ := decodeError(t, w)
		assert.Equal(t, "INVALID_SIGNATURE", code)
	})

	t.Run("oversized payload", func(t *testing.T) {
		payments := &stubPayments{}
		router := newPaymentRouter(payments, &stubDiscounts{})
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(make([]byte, maxWebhookBody+1)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Nil(t, payments.webhookBody)
	})
}

package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
)

// maxWebhookBody matches the payload limit Stripe documents for webhooks
const maxWebhookBody = 65536

// PaymentRequest is the body shared by the three payment routes
type PaymentRequest struct {
	DesignRequestID string `json:"designRequestId" binding:"required"`
	DiscountCode    string `json:"discountCode"`
}

// ValidateDiscountRequest prices either a stored request or a bare amount
type ValidateDiscountRequest struct {
	Code            string `json:"code" binding:"required"`
	DesignRequestID string `json:"designRequestId"`
	Email           string `json:"email"`
	BaseAmount      *int64 `json:"baseAmount"`
}

type PaymentController struct {
	payments  services.PaymentService
	discounts services.DiscountService
	log       *logger.Logger
}

func NewPaymentController(payments services.PaymentService, discounts services.DiscountService, baseLog *logger.Logger) *PaymentController {
	return &PaymentController{payments: payments, discounts: discounts, log: baseLog.With("controller", "payments")}
}

func (h *PaymentController) bind(c *gin.Context) (PaymentRequest, bool) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return req, false
	}
	return req, true
}

// CreateCheckoutSession handles POST /api/create-checkout-session
func (h *PaymentController) CreateCheckoutSession(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, req.DesignRequestID, "designRequestId")
	if !ok {
		return
	}
	result, err := h.payments.CreateCheckoutSession(c.Request.Context(), id, req.DiscountCode)
	if err != nil {
		respondServiceError(c, h.log, err, "create checkout session")
		return
	}
	respondOK(c, http.StatusOK, result)
}

// CreatePaymentIntent handles POST /api/create-payment-intent
func (h *PaymentController) CreatePaymentIntent(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, req.DesignRequestID, "designRequestId")
	if !ok {
		return
	}
	result, err := h.payments.CreatePaymentIntent(c.Request.Context(), id, req.DiscountCode)
	if err != nil {
		respondServiceError(c, h.log, err, "create payment intent")
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ZeroAmountPayment handles POST /api/zero-amount-payment
func (h *PaymentController) ZeroAmountPayment(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, req.DesignRequestID, "designRequestId")
	if !ok {
		return
	}
	result, err := h.payments.CompleteZeroAmount(c.Request.Context(), id, req.DiscountCode)
	if err != nil {
		respondServiceError(c, h.log, err, "complete order")
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ValidateDiscountCode handles POST /api/validate-discount-code. A code that
// fails a business rule is a 200 with valid=false and the reason.
func (h *PaymentController) ValidateDiscountCode(c *gin.Context) {
	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	var (
		quote *services.DiscountQuote
		err   error
	)
	switch {
	case req.DesignRequestID != "":
		id, ok := parseUUIDParam(c, req.DesignRequestID, "designRequestId")
		if !ok {
			return
		}
		quote, err = h.payments.Quote(c.Request.Context(), id, req.Code)
	case req.BaseAmount != nil:
		quote, err = h.discounts.Quote(c.Request.Context(), req.Code, req.Email, *req.BaseAmount)
	default:
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "designRequestId or baseAmount is required")
		return
	}
	if err != nil {
		respondServiceError(c, h.log, err, "validate discount code")
		return
	}
	respondOK(c, http.StatusOK, quote)
}

// StripeWebhook handles POST /api/webhooks/stripe. The raw body is needed
// for signature verification, so it is never bound.
func (h *PaymentController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook payload is too large")
			return
		}
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Could not read request body")
		return
	}

	result, err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondServiceError(c, h.log, err, "process webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"result":   result.Result,
	})
}

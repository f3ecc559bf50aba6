package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

// Stripe metadata keys written on every session and intent
const (
	metaRequestID      = "design_request_id"
	metaDesignCode     = "design_code"
	metaPaymentType    = "payment_type"
	metaDiscountCode   = "discount_code"
	metaBaseAmount     = "base_amount"
	metaDiscountAmount = "discount_amount"
	metaFinalAmount    = "final_amount"
)

// Webhook handling results
const (
	WebhookProcessed = "processed"
	WebhookSkipped   = "skipped"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

const notificationTimeout = 60 * time.Second

type CheckoutResult struct {
	SessionID string         `json:"session_id"`
	URL       string         `json:"url"`
	Quote     *DiscountQuote `json:"quote"`
}

type IntentResult struct {
	PaymentIntentID string         `json:"payment_intent_id"`
	ClientSecret    string         `json:"client_secret"`
	Quote           *DiscountQuote `json:"quote"`
}

type ZeroAmountResult struct {
	DesignCode string         `json:"design_code"`
	Status     string         `json:"status"`
	Quote      *DiscountQuote `json:"quote"`
}

type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Result    string `json:"result"`
}

// ConfirmationSender sends the post-payment emails for a request
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, requestID uuid.UUID) error
}

type PaymentService interface {
	// Quote prices a request with an optional discount code without charging it
	Quote(ctx context.Context, requestID uuid.UUID, discountCode string) (*DiscountQuote, error)
	CreateCheckoutSession(ctx context.Context, requestID uuid.UUID, discountCode string) (*CheckoutResult, error)
	CreatePaymentIntent(ctx context.Context, requestID uuid.UUID, discountCode string) (*IntentResult, error)
	// CompleteZeroAmount settles a fully discounted order without Stripe
	CompleteZeroAmount(ctx context.Context, requestID uuid.UUID, discountCode string) (*ZeroAmountResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

type PaymentConfig struct {
	SiteURL  string
	Currency string
}

type paymentService struct {
	requests  repositories.DesignRequestRepository
	events    repositories.EventRepository
	discounts repositories.DiscountRepository
	pricing   DiscountService
	gateway   StripeGateway
	notifier  ConfirmationSender
	cfg       PaymentConfig
	metrics   *metrics.Metrics
	log       *logger.Logger
	// dispatch runs post-payment work off the request path
	dispatch func(func())
}

func NewPaymentService(
	requests repositories.DesignRequestRepository,
	events repositories.EventRepository,
	discounts repositories.DiscountRepository,
	pricing DiscountService,
	gateway StripeGateway,
	notifier ConfirmationSender,
	cfg PaymentConfig,
	m *metrics.Metrics,
	baseLog *logger.Logger,
) PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &paymentService{
		requests:  requests,
		events:    events,
		discounts: discounts,
		pricing:   pricing,
		gateway:   gateway,
		notifier:  notifier,
		cfg:       cfg,
		metrics:   m,
		log:       baseLog.With("service", "PaymentService"),
		dispatch:  func(f func()) { go f() },
	}
}

// WithSyncDispatch makes notifications run inline. Tests only.
func WithSyncDispatch(svc PaymentService) PaymentService {
	if p, ok := svc.(*paymentService); ok {
		p.dispatch = func(f func()) { f() }
	}
	return svc
}

// priced is a request ready to be charged
type priced struct {
	req   *models.DesignRequest
	quote *DiscountQuote
}

// price recomputes the amount from stored state; client amounts are never trusted
func (s *paymentService) price(ctx context.Context, requestID uuid.UUID, discountCode string) (*priced, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load design request: %w", err)
	}
	switch req.Status {
	case models.StatusSubmitted, models.StatusPaymentFailed:
	case models.StatusDraft:
		return nil, fmt.Errorf("%w: request must be submitted before payment", ErrConflict)
	default:
		return nil, fmt.Errorf("%w: request is already %s", ErrConflict, req.Status)
	}
	if req.Product == nil {
		return nil, fmt.Errorf("%w: request has no product", ErrProductNotFound)
	}

	code := strings.TrimSpace(discountCode)
	if code == "" && req.DiscountCode != nil {
		code = *req.DiscountCode
	}
	quote, err := s.pricing.Quote(ctx, code, req.Email, req.Product.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("price request: %w", err)
	}
	if quote.Code != "" && !quote.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiscount, quote.Message)
	}
	if quote.Valid && (req.DiscountCode == nil || *req.DiscountCode != quote.Code) {
		if err := s.requests.UpdateFields(ctx, req.ID, map[string]interface{}{"discount_code": quote.Code}); err != nil {
			return nil, fmt.Errorf("store discount code: %w", err)
		}
		req.DiscountCode = &quote.Code
	}
	return &priced{req: req, quote: quote}, nil
}

func (s *paymentService) Quote(ctx context.Context, requestID uuid.UUID, discountCode string) (*DiscountQuote, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load design request: %w", err)
	}
	if req.Product == nil {
		return nil, ErrProductNotFound
	}
	return s.pricing.Quote(ctx, discountCode, req.Email, req.Product.PriceCents)
}

func (s *paymentService) currency(req *models.DesignRequest) string {
	if req.Product != nil && req.Product.Currency != "" {
		return strings.ToLower(req.Product.Currency)
	}
	return s.cfg.Currency
}

func (s *paymentService) metadata(p *priced, paymentType string) map[string]string {
	return map[string]string{
		metaRequestID:      p.req.ID.String(),
		metaDesignCode:     p.req.DesignCode,
		metaPaymentType:    paymentType,
		metaDiscountCode:   p.quote.Code,
		metaBaseAmount:     strconv.FormatInt(p.quote.BaseCents, 10),
		metaDiscountAmount: strconv.FormatInt(p.quote.DiscountCents, 10),
		metaFinalAmount:    strconv.FormatInt(p.quote.FinalCents, 10),
	}
}

func (s *paymentService) CreateCheckoutSession(ctx context.Context, requestID uuid.UUID, discountCode string) (*CheckoutResult, error) {
	p, err := s.price(ctx, requestID, discountCode)
	if err != nil {
		return nil, err
	}
	if p.quote.FinalCents == 0 {
		return nil, ErrZeroAmount
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		AmountCents:   p.quote.FinalCents,
		Currency:      s.currency(p.req),
		ProductName:   p.req.Product.Title,
		Description:   "Design request " + p.req.DesignCode,
		CustomerEmail: p.req.Email,
		SuccessURL:    fmt.Sprintf("%s/design-request/success?code=%s&session_id={CHECKOUT_SESSION_ID}", s.cfg.SiteURL, p.req.DesignCode),
		CancelURL:     fmt.Sprintf("%s/design-request/%s?payment=cancelled", s.cfg.SiteURL, p.req.DesignCode),
		Metadata:      s.metadata(p, models.PaymentTypeCheckout),
	})
	if err != nil {
		s.metrics.Payment(models.PaymentTypeCheckout, "error")
		s.log.Error("Checkout session creation failed", "design_request_id", requestID.String(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.appendEvent(ctx, p.req.ID, models.EventCheckoutSessionCreated, map[string]interface{}{
		"session_id":      session.ID,
		"payment_type":    models.PaymentTypeCheckout,
		"amount":          p.quote.FinalCents,
		"base_amount":     p.quote.BaseCents,
		"discount_amount": p.quote.DiscountCents,
		"discount_code":   p.quote.Code,
	})
	s.metrics.Payment(models.PaymentTypeCheckout, "created")
	return &CheckoutResult{SessionID: session.ID, URL: session.URL, Quote: p.quote}, nil
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, requestID uuid.UUID, discountCode string) (*IntentResult, error) {
	p, err := s.price(ctx, requestID, discountCode)
	if err != nil {
		return nil, err
	}
	if p.quote.FinalCents == 0 {
		return nil, ErrZeroAmount
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, IntentRequest{
		AmountCents:  p.quote.FinalCents,
		Currency:     s.currency(p.req),
		ReceiptEmail: p.req.Email,
		Description:  fmt.Sprintf("%s (%s)", p.req.Product.Title, p.req.DesignCode),
		Metadata:     s.metadata(p, models.PaymentTypeIntent),
	})
	if err != nil {
		s.metrics.Payment(models.PaymentTypeIntent, "error")
		s.log.Error("Payment intent creation failed", "design_request_id", requestID.String(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.appendEvent(ctx, p.req.ID, models.EventPaymentIntentCreated, map[string]interface{}{
		"payment_intent_id": intent.ID,
		"payment_type":      models.PaymentTypeIntent,
		"amount":            p.quote.FinalCents,
		"base_amount":       p.quote.BaseCents,
		"discount_amount":   p.quote.DiscountCents,
		"discount_code":     p.quote.Code,
	})
	s.metrics.Payment(models.PaymentTypeIntent, "created")
	return &IntentResult{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret, Quote: p.quote}, nil
}

func (s *paymentService) CompleteZeroAmount(ctx context.Context, requestID uuid.UUID, discountCode string) (*ZeroAmountResult, error) {
	p, err := s.price(ctx, requestID, discountCode)
	if err != nil {
		return nil, err
	}
	if p.quote.FinalCents != 0 {
		return nil, ErrNonZeroAmount
	}

	// nothing is charged, so a lost race on the request or the code's last
	// use must fail instead of being absorbed
	zero := int64(0)
	err = s.requests.ApplyPaymentOutcome(ctx, repositories.PaymentOutcome{
		RequestID:           p.req.ID,
		Status:              models.StatusPaid,
		AmountCents:         &zero,
		DiscountCodeID:      p.quote.DiscountCodeID,
		FromStatuses:        []string{models.StatusSubmitted, models.StatusPaymentFailed},
		RequireDiscountSlot: true,
		Event: *newEvent(p.req.ID, models.EventPaymentSucceeded, map[string]interface{}{
			"amount":          0,
			"payment_type":    models.PaymentTypeZeroAmount,
			"base_amount":     p.quote.BaseCents,
			"discount_amount": p.quote.DiscountCents,
			"discount_code":   p.quote.Code,
		}),
	})
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrDiscountExhausted):
		return nil, fmt.Errorf("%w: Discount code has reached its usage limit", ErrInvalidDiscount)
	case errors.Is(err, repositories.ErrConflict):
		return nil, fmt.Errorf("%w: request is no longer awaiting payment", ErrConflict)
	case errors.Is(err, repositories.ErrNotFound):
		return nil, ErrRequestNotFound
	default:
		return nil, fmt.Errorf("record zero amount payment: %w", err)
	}

	s.metrics.Payment(models.PaymentTypeZeroAmount, "succeeded")
	s.log.Info("Zero amount order completed", "design_request_id", p.req.ID.String(), "discount_code", p.quote.Code)
	s.notify(p.req.ID)
	return &ZeroAmountResult{DesignCode: p.req.DesignCode, Status: models.StatusPaid, Quote: p.quote}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.log.Warn("Rejected Stripe webhook", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	res := &WebhookResult{EventID: event.ID, EventType: string(event.Type)}
	switch event.Type {
	case "checkout.session.completed":
		res.Result, err = s.onCheckoutCompleted(ctx, event)
	case "checkout.session.expired":
		res.Result, err = s.onCheckoutExpired(ctx, event)
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		res.Result, err = s.onPaymentIntent(ctx, event)
	default:
		res.Result = WebhookIgnored
	}
	if err != nil {
		s.metrics.WebhookEvent(res.EventType, "error")
		return nil, err
	}
	s.metrics.WebhookEvent(res.EventType, res.Result)
	s.log.Info("Stripe webhook handled", "event_id", event.ID, "event_type", res.EventType, "result", res.Result)
	return res, nil
}

func (s *paymentService) onCheckoutCompleted(ctx context.Context, event stripe.Event) (string, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", fmt.Errorf("%w: decode checkout session: %v", ErrInvalidInput, err)
	}
	requestID, ok := s.requestIDFrom(session.Metadata, event)
	if !ok {
		return WebhookIgnored, nil
	}

	amount := session.AmountTotal
	result, err := s.settle(ctx, event, requestID, models.StatusPaid, &amount, session.Metadata, models.EventPaymentSucceeded, map[string]interface{}{
		"payment_type": models.PaymentTypeCheckout,
		"amount":       amount,
		"session_id":   session.ID,
		"currency":     string(session.Currency),
	})
	if err != nil || result != WebhookProcessed {
		return result, err
	}
	s.metrics.Payment(models.PaymentTypeCheckout, "succeeded")
	s.notify(requestID)
	return result, nil
}

func (s *paymentService) onCheckoutExpired(ctx context.Context, event stripe.Event) (string, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", fmt.Errorf("%w: decode checkout session: %v", ErrInvalidInput, err)
	}
	requestID, ok := s.requestIDFrom(session.Metadata, event)
	if !ok {
		return WebhookIgnored, nil
	}
	return s.record(ctx, event, requestID, models.EventPaymentCancelled, map[string]interface{}{
		"payment_type": models.PaymentTypeCheckout,
		"session_id":   session.ID,
		"reason":       "checkout_session_expired",
	})
}

func (s *paymentService) onPaymentIntent(ctx context.Context, event stripe.Event) (string, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return "", fmt.Errorf("%w: decode payment intent: %v", ErrInvalidInput, err)
	}
	// Checkout-originated intents are settled by the checkout.session events
	if intent.Metadata[metaPaymentType] == models.PaymentTypeCheckout {
		return WebhookSkipped, nil
	}
	requestID, ok := s.requestIDFrom(intent.Metadata, event)
	if !ok {
		return WebhookIgnored, nil
	}

	payload := map[string]interface{}{
		"payment_type":      models.PaymentTypeIntent,
		"payment_intent_id": intent.ID,
		"amount":            intent.Amount,
	}
	switch event.Type {
	case "payment_intent.succeeded":
		amount := intent.Amount
		result, err := s.settle(ctx, event, requestID, models.StatusPaid, &amount, intent.Metadata, models.EventPaymentSucceeded, payload)
		if err != nil || result != WebhookProcessed {
			return result, err
		}
		s.metrics.Payment(models.PaymentTypeIntent, "succeeded")
		s.notify(requestID)
		return result, nil
	case "payment_intent.payment_failed":
		if intent.LastPaymentError != nil {
			payload["failure_message"] = intent.LastPaymentError.Msg
			payload["failure_code"] = string(intent.LastPaymentError.Code)
		}
		result, err := s.settle(ctx, event, requestID, models.StatusPaymentFailed, nil, intent.Metadata, models.EventPaymentFailed, payload)
		if err == nil && result == WebhookProcessed {
			s.metrics.Payment(models.PaymentTypeIntent, "failed")
		}
		return result, err
	default:
		payload["cancellation_reason"] = string(intent.CancellationReason)
		return s.record(ctx, event, requestID, models.EventPaymentCancelled, payload)
	}
}

// settle applies a payment outcome keyed by the Stripe event id
func (s *paymentService) settle(ctx context.Context, event stripe.Event, requestID uuid.UUID, status string, amount *int64, meta map[string]string, eventType string, payload map[string]interface{}) (string, error) {
	var discountID *uuid.UUID
	if status == models.StatusPaid {
		if code := meta[metaDiscountCode]; code != "" {
			d, err := s.discounts.FindByCode(ctx, code)
			switch {
			case err == nil:
				discountID = &d.ID
			case errors.Is(err, repositories.ErrNotFound):
				s.log.Warn("Discount code from payment metadata no longer exists", "discount_code", code)
			default:
				return "", fmt.Errorf("find discount code: %w", err)
			}
		}
	}

	if status != models.StatusPaid {
		// a late failure never downgrades a paid request
		if req, err := s.requests.GetByID(ctx, requestID); err == nil && req.Status == models.StatusPaid {
			return s.record(ctx, event, requestID, eventType, payload)
		}
	}

	ev := newEvent(requestID, eventType, withEventID(payload, event.ID))
	eventID := event.ID
	ev.StripeEventID = &eventID
	ev.CreatedBy = "stripe_webhook"

	err := s.requests.ApplyPaymentOutcome(ctx, repositories.PaymentOutcome{
		RequestID:      requestID,
		Status:         status,
		AmountCents:    amount,
		DiscountCodeID: discountID,
		Event:          *ev,
	})
	switch {
	case err == nil:
		return WebhookProcessed, nil
	case errors.Is(err, repositories.ErrDuplicate):
		return WebhookDuplicate, nil
	case errors.Is(err, repositories.ErrAlreadyPaid):
		if status == models.StatusPaid {
			s.log.Warn("Payment succeeded for a request that is already paid", "design_request_id", requestID.String(), "event_id", event.ID)
			return WebhookSkipped, nil
		}
		return WebhookProcessed, nil
	case errors.Is(err, repositories.ErrNotFound):
		s.log.Warn("Webhook references unknown design request", "design_request_id", requestID.String(), "event_id", event.ID)
		return WebhookIgnored, nil
	default:
		return "", fmt.Errorf("apply payment outcome: %w", err)
	}
}

// record appends an event without touching request state
func (s *paymentService) record(ctx context.Context, event stripe.Event, requestID uuid.UUID, eventType string, payload map[string]interface{}) (string, error) {
	ev := newEvent(requestID, eventType, withEventID(payload, event.ID))
	eventID := event.ID
	ev.StripeEventID = &eventID
	ev.CreatedBy = "stripe_webhook"

	err := s.events.Append(ctx, ev)
	switch {
	case err == nil:
		return WebhookProcessed, nil
	case errors.Is(err, repositories.ErrDuplicate):
		return WebhookDuplicate, nil
	default:
		return "", fmt.Errorf("record webhook event: %w", err)
	}
}

func (s *paymentService) requestIDFrom(meta map[string]string, event stripe.Event) (uuid.UUID, bool) {
	id, err := uuid.Parse(meta[metaRequestID])
	if err != nil {
		s.log.Warn("Webhook without design request metadata", "event_id", event.ID, "event_type", string(event.Type))
		return uuid.Nil, false
	}
	return id, true
}

func (s *paymentService) appendEvent(ctx context.Context, requestID uuid.UUID, eventType string, payload map[string]interface{}) {
	if err := s.events.Append(ctx, newEvent(requestID, eventType, payload)); err != nil {
		s.log.Error("Failed to record event", "design_request_id", requestID.String(), "event_type", eventType, "error", err)
	}
}

// notify sends confirmation emails without blocking the caller; failures
// never affect payment state
func (s *paymentService) notify(requestID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		if err := s.notifier.SendConfirmation(ctx, requestID); err != nil {
			s.log.Error("Confirmation email failed", "design_request_id", requestID.String(), "error", err)
		}
	})
}

func withEventID(payload map[string]interface{}, eventID string) map[string]interface{} {
	payload["stripe_event_id"] = eventID
	return payload
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/flow"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"gorm.io/datatypes"
)

type CreateDesignRequestInput struct {
	Product ProductRef
	Email   string
	StyleID *uuid.UUID
}

// UpdateDesignRequestInput carries a partial update. Answers is the full
// accumulated answer set keyed by question id.
type UpdateDesignRequestInput struct {
	ID           uuid.UUID
	Email        *string
	StyleID      *uuid.UUID
	DiscountCode *string
	Status       *string
	Answers      map[string]json.RawMessage
}

// DesignRequestView is a request with its current answers in client shape
type DesignRequestView struct {
	*models.DesignRequest
	Answers map[string]interface{} `json:"answers"`
}

// FunnelStage is one step of the checkout funnel
type FunnelStage struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}

type Analytics struct {
	RequestsByStatus map[string]int64 `json:"requests_by_status"`
	EventsByType     map[string]int64 `json:"events_by_type"`
	Funnel           []FunnelStage    `json:"funnel"`
	ConversionRate   float64          `json:"conversion_rate"`
}

type DesignRequestService interface {
	Create(ctx context.Context, in CreateDesignRequestInput) (*models.DesignRequest, error)
	Update(ctx context.Context, in UpdateDesignRequestInput) (*DesignRequestView, error)
	Get(ctx context.Context, id uuid.UUID) (*DesignRequestView, error)
	GetByCode(ctx context.Context, code string) (*DesignRequestView, error)
	Summary(ctx context.Context, id uuid.UUID) (*RequestSummary, error)
	Events(ctx context.Context, id uuid.UUID) ([]models.DesignRequestEvent, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

type designRequestService struct {
	requests  repositories.DesignRequestRepository
	events    repositories.EventRepository
	products  repositories.ProductRepository
	questions QuestionService
	summaries *SummaryBuilder
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewDesignRequestService(
	requests repositories.DesignRequestRepository,
	events repositories.EventRepository,
	products repositories.ProductRepository,
	questions QuestionService,
	m *metrics.Metrics,
	baseLog *logger.Logger,
) DesignRequestService {
	return &designRequestService{
		requests:  requests,
		events:    events,
		products:  products,
		questions: questions,
		summaries: NewSummaryBuilder(requests, questions),
		metrics:   m,
		log:       baseLog.With("service", "DesignRequestService"),
	}
}

func (s *designRequestService) Create(ctx context.Context, in CreateDesignRequestInput) (*models.DesignRequest, error) {
	product, err := loadProduct(ctx, s.products, in.Product)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !flow.EmailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	if in.StyleID != nil {
		if _, err := s.questions.Style(ctx, product.ID, *in.StyleID); err != nil {
			return nil, err
		}
	}

	req := &models.DesignRequest{
		Email:     email,
		ProductID: product.ID,
		StyleID:   in.StyleID,
		Status:    models.StatusDraft,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create design request: %w", err)
	}
	req.Product = product

	s.appendEvent(ctx, req.ID, models.EventRequestCreated, map[string]interface{}{
		"design_code":  req.DesignCode,
		"product_id":   product.ID.String(),
		"product_slug": product.Slug,
	})
	s.metrics.DesignRequest("created")
	s.log.Info("Design request created", "design_request_id", req.ID.String(), "design_code", req.DesignCode)
	return req, nil
}

func (s *designRequestService) Update(ctx context.Context, in UpdateDesignRequestInput) (*DesignRequestView, error) {
	req, err := s.load(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if req.Status == models.StatusPaid {
		return nil, fmt.Errorf("%w: request %s is already paid", ErrConflict, req.DesignCode)
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" && !flow.EmailPattern.MatchString(email) {
			return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
		}
		updates["email"] = email
		req.Email = email
	}
	if in.StyleID != nil {
		if _, err := s.questions.Style(ctx, req.ProductID, *in.StyleID); err != nil {
			return nil, err
		}
		updates["style_id"] = *in.StyleID
	}
	if in.DiscountCode != nil {
		code := repositories.NormalizeCode(*in.DiscountCode)
		if code == "" {
			updates["discount_code"] = nil
		} else {
			updates["discount_code"] = code
		}
	}

	var questions []ResolvedQuestion
	if len(in.Answers) > 0 || in.Status != nil {
		_, questions, err = s.questions.ListForProduct(ctx, ProductRef{ID: req.ProductID})
		if err != nil {
			return nil, err
		}
	}

	if len(in.Answers) > 0 {
		known := make(map[uuid.UUID]bool, len(questions))
		for _, q := range questions {
			known[q.ID] = true
		}
		classified := make(map[uuid.UUID]models.ClassifiedAnswer, len(in.Answers))
		for key, raw := range in.Answers {
			qID, err := uuid.Parse(key)
			if err != nil {
				return nil, fmt.Errorf("%w: answer key %q is not a question id", ErrInvalidInput, key)
			}
			if !known[qID] {
				return nil, fmt.Errorf("%w: question %s does not belong to this product", ErrInvalidInput, key)
			}
			c, err := models.ClassifyAnswer(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			classified[qID] = c
		}
		written, err := s.requests.SaveAnswers(ctx, req.ID, classified)
		if err != nil {
			return nil, fmt.Errorf("save answers: %w", err)
		}
		s.log.Debug("Answers saved", "design_request_id", req.ID.String(), "versions_written", written)

		if req.Email == "" && in.Email == nil {
			if email := emailFromAnswers(questions, in.Answers); email != "" {
				updates["email"] = email
				req.Email = email
			}
		}
	}

	if len(updates) > 0 {
		if err := s.requests.UpdateFields(ctx, req.ID, updates); err != nil {
			return nil, fmt.Errorf("update design request: %w", err)
		}
	}

	if in.Status != nil {
		if err := s.submit(ctx, req, questions, *in.Status); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, req.ID)
}

// submit validates the stored answers and moves the request to SUBMITTED
func (s *designRequestService) submit(ctx context.Context, req *models.DesignRequest, questions []ResolvedQuestion, status string) error {
	if status != models.StatusSubmitted {
		return fmt.Errorf("%w: status can only be set to %s", ErrInvalidInput, models.StatusSubmitted)
	}
	if req.Email == "" {
		return fmt.Errorf("%w: an email address is required before submitting", ErrInvalidInput)
	}

	current, err := s.requests.CurrentAnswers(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	answers := make(map[string]models.AnswerValue, len(current))
	for i := range current {
		answers[current[i].QuestionID.String()] = models.DecodeAnswer(&current[i])
	}
	if err := flow.ValidateAll(FlowQuestions(questions), answers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	wasDraft := req.Status == models.StatusDraft
	if err := s.requests.MarkSubmitted(ctx, req.ID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return fmt.Errorf("%w: request is %s", ErrConflict, req.Status)
		}
		return fmt.Errorf("submit design request: %w", err)
	}
	if wasDraft {
		s.appendEvent(ctx, req.ID, models.EventRequestSubmitted, map[string]interface{}{
			"design_code":  req.DesignCode,
			"answer_count": len(current),
		})
		s.metrics.DesignRequest("submitted")
	}
	return nil
}

func (s *designRequestService) Get(ctx context.Context, id uuid.UUID) (*DesignRequestView, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, req)
}

func (s *designRequestService) GetByCode(ctx context.Context, code string) (*DesignRequestView, error) {
	req, err := s.requests.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load design request: %w", err)
	}
	return s.view(ctx, req)
}

func (s *designRequestService) view(ctx context.Context, req *models.DesignRequest) (*DesignRequestView, error) {
	current, err := s.requests.CurrentAnswers(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	answers := make(map[string]interface{}, len(current))
	for i := range current {
		answers[current[i].QuestionID.String()] = models.DecodeAnswer(&current[i]).Interface()
	}
	return &DesignRequestView{DesignRequest: req, Answers: answers}, nil
}

func (s *designRequestService) Summary(ctx context.Context, id uuid.UUID) (*RequestSummary, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summaries.Build(ctx, req)
}

func (s *designRequestService) Events(ctx context.Context, id uuid.UUID) ([]models.DesignRequestEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListByRequest(ctx, id)
}

func (s *designRequestService) Analytics(ctx context.Context) (*Analytics, error) {
	byStatus, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	byType, err := s.events.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	created := byType[models.EventRequestCreated]
	paid := byType[models.EventPaymentSucceeded]
	a := &Analytics{
		RequestsByStatus: byStatus,
		EventsByType:     byType,
		Funnel: []FunnelStage{
			{Stage: "created", Count: created},
			{Stage: "submitted", Count: byType[models.EventRequestSubmitted]},
			{Stage: "checkout_started", Count: byType[models.EventCheckoutSessionCreated] + byType[models.EventPaymentIntentCreated]},
			{Stage: "paid", Count: paid},
		},
	}
	if created > 0 {
		a.ConversionRate = float64(paid) / float64(created)
	}
	return a, nil
}

func (s *designRequestService) load(ctx context.Context, id uuid.UUID) (*models.DesignRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load design request: %w", err)
	}
	return req, nil
}

// appendEvent records a lifecycle event; the event log is for reporting so
// failures are logged only
func (s *designRequestService) appendEvent(ctx context.Context, requestID uuid.UUID, eventType string, payload map[string]interface{}) {
	if err := s.events.Append(ctx, newEvent(requestID, eventType, payload)); err != nil {
		s.log.Error("Failed to record event", "design_request_id", requestID.String(), "event_type", eventType, "error", err)
	}
}

func newEvent(requestID uuid.UUID, eventType string, payload map[string]interface{}) *models.DesignRequestEvent {
	raw, _ := json.Marshal(payload)
	return &models.DesignRequestEvent{
		DesignRequestID: requestID,
		EventType:       eventType,
		Payload:         datatypes.JSON(raw),
		CreatedBy:       "system",
	}
}

// FlowQuestions adapts resolved questions for the flow package
func FlowQuestions(questions []ResolvedQuestion) []flow.Question {
	out := make([]flow.Question, 0, len(questions))
	for _, q := range questions {
		out = append(out, flow.FromRequestQuestion(q.RequestQuestion))
	}
	return out
}

// emailFromAnswers returns the answer to the first email question, if valid
func emailFromAnswers(questions []ResolvedQuestion, answers map[string]json.RawMessage) string {
	for _, q := range questions {
		if q.QuestionType != models.QuestionTypeEmail {
			continue
		}
		raw, ok := answers[q.ID.String()]
		if !ok {
			continue
		}
		v, err := models.DecodeRawAnswer(raw)
		if err != nil {
			continue
		}
		if email := strings.TrimSpace(v.Text); flow.EmailPattern.MatchString(email) {
			return email
		}
	}
	return ""
}

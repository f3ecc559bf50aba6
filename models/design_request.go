package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Design request statuses
const (
	StatusDraft         = "DRAFT"
	StatusSubmitted     = "SUBMITTED"
	StatusPaid          = "PAID"
	StatusPaymentFailed = "PAYMENT_FAILED"
)

// DesignRequest is one customer's sticker design order
type DesignRequest struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DesignCode   string       `gorm:"uniqueIndex;not null" json:"design_code"`
	Email        string       `gorm:"index" json:"email"`
	ProductID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product      *Product     `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	StyleID      *uuid.UUID   `gorm:"type:uuid" json:"style_id,omitempty"`
	Style        *DesignStyle `gorm:"foreignKey:StyleID" json:"style,omitempty"`
	Status       string       `gorm:"not null;default:'DRAFT';index" json:"status"`
	DiscountCode *string      `json:"discount_code,omitempty"`
	AmountCents  *int64       `json:"amount_cents,omitempty"` // final charged amount, set once payment succeeds
	SubmittedAt  *time.Time   `json:"submitted_at,omitempty"`
	PaidAt       *time.Time   `json:"paid_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName specifies the table name for the DesignRequest model
func (DesignRequest) TableName() string {
	return "design_requests"
}

func (r *DesignRequest) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// AnswerHistoryEntry is one version of an answer. At most one entry per
// (request, question) has IsCurrent set.
type AnswerHistoryEntry struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DesignRequestID uuid.UUID      `gorm:"type:uuid;not null;index:idx_answers_current,unique,where:is_current = true" json:"design_request_id"`
	QuestionID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_answers_current,unique" json:"question_id"`
	AnswerText      *string        `gorm:"type:text" json:"answer_text,omitempty"`
	AnswerOptions   datatypes.JSON `json:"answer_options,omitempty"`
	AnswerFileURL   *string        `json:"answer_file_url,omitempty"`
	Version         int            `gorm:"not null" json:"version"`
	IsCurrent       bool           `gorm:"not null;index" json:"is_current"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TableName specifies the table name for the AnswerHistoryEntry model
func (AnswerHistoryEntry) TableName() string {
	return "design_request_answers_history"
}

func (a *AnswerHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// Domain event types
const (
	EventRequestCreated         = "REQUEST_CREATED"
	EventRequestSubmitted       = "REQUEST_SUBMITTED"
	EventCheckoutSessionCreated = "CHECKOUT_SESSION_CREATED"
	EventPaymentIntentCreated   = "PAYMENT_INTENT_CREATED"
	EventPaymentSucceeded       = "PAYMENT_SUCCEEDED"
	EventPaymentFailed          = "PAYMENT_FAILED"
	EventPaymentCancelled       = "PAYMENT_CANCELLED"
)

// Payment type markers carried in Stripe metadata and event payloads
const (
	PaymentTypeCheckout   = "stripe_checkout"
	PaymentTypeIntent     = "payment_intent"
	PaymentTypeZeroAmount = "zero_amount_discount"
)

// DesignRequestEvent is an append-only lifecycle record
type DesignRequestEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DesignRequestID uuid.UUID      `gorm:"type:uuid;not null;index" json:"design_request_id"`
	EventType       string         `gorm:"not null;index" json:"event_type"`
	Payload         datatypes.JSON `json:"payload"`
	CreatedBy       string         `gorm:"not null;default:'system'" json:"created_by"`
	StripeEventID   *string        `gorm:"uniqueIndex" json:"stripe_event_id,omitempty"` // rejects replayed webhook deliveries
	CreatedAt       time.Time      `json:"created_at"`
}

// TableName specifies the table name for the DesignRequestEvent model
func (DesignRequestEvent) TableName() string {
	return "design_request_events"
}

func (e *DesignRequestEvent) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AIGenerationLog records every call to the text generation API
type AIGenerationLog struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DesignRequestID *uuid.UUID `gorm:"type:uuid;index" json:"design_request_id,omitempty"`
	QuestionID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"question_id"`
	Model           string     `gorm:"not null" json:"model"`
	Prompt          string     `gorm:"type:text;not null" json:"prompt"`
	Response        string     `gorm:"type:text" json:"response"`
	Success         bool       `gorm:"not null" json:"success"`
	ErrorMessage    *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName specifies the table name for the AIGenerationLog model
func (AIGenerationLog) TableName() string {
	return "ai_generation_logs"
}

func (l *AIGenerationLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// FAQ submission statuses
const (
	FAQStatusNew      = "new"
	FAQStatusAnswered = "answered"
	FAQStatusArchived = "archived"
)

// FAQSubmission is a question sent from the public FAQ page
type FAQSubmission struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `json:"name"`
	Email      string     `gorm:"not null" json:"email"`
	Question   string     `gorm:"type:text;not null" json:"question"`
	Answer     *string    `gorm:"type:text" json:"answer,omitempty"`
	Status     string     `gorm:"not null;default:'new';index" json:"status"`
	AnsweredBy *string    `json:"answered_by,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the FAQSubmission model
func (FAQSubmission) TableName() string {
	return "faq_submissions"
}

func (f *FAQSubmission) BeforeCreate(tx *gorm.DB) error {
	assignID(&f.ID)
	return nil
}

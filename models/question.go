package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question types understood by the flow
const (
	QuestionTypeText           = "text"
	QuestionTypeEmail          = "email"
	QuestionTypeTextarea       = "textarea"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeFileUpload     = "file_upload"
	QuestionTypeStyle          = "style"
)

// Option template sources
const (
	SourceStatic       = "static"
	SourceDesignStyles = "design_styles"
	SourceDemoItems    = "question_demo_items"
	SourceProducts     = "products"
)

// RequestQuestion is one question of a product's questionnaire
type RequestQuestion struct {
	ID                  uuid.UUID                                `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID           uuid.UUID                                `gorm:"type:uuid;not null;index" json:"product_id"`
	QuestionText        string                                   `gorm:"type:text;not null" json:"question_text"`
	QuestionType        string                                   `gorm:"not null;default:'text'" json:"question_type"`
	IsRequired          bool                                     `gorm:"not null" json:"is_required"`
	IsActive            bool                                     `gorm:"not null" json:"is_active"`
	SortOrder           int                                      `gorm:"not null;default:0" json:"sort_order"`
	PlaceholderText     string                                   `json:"placeholder_text,omitempty"`
	OptionTemplateID    *uuid.UUID                               `gorm:"type:uuid" json:"option_template_id,omitempty"`
	OptionTemplate      *OptionTemplate                          `gorm:"foreignKey:OptionTemplateID" json:"-"`
	CustomTemplateID    *uuid.UUID                               `gorm:"type:uuid" json:"custom_template_id,omitempty"`
	AllowCustom         bool                                     `gorm:"not null" json:"allow_custom"`
	IsAIGenerated       bool                                     `gorm:"column:is_ai_generated;not null" json:"is_ai_generated"`
	AIPromptTemplate    string                                   `gorm:"column:ai_prompt_template;type:text" json:"-"`
	AIPlaceholderConfig datatypes.JSONSlice[PlaceholderBinding] `gorm:"column:ai_placeholder_config" json:"-"`
	CreatedAt           time.Time                                `json:"created_at"`
	UpdatedAt           time.Time                                `json:"updated_at"`
}

// TableName specifies the table name for the RequestQuestion model
func (RequestQuestion) TableName() string {
	return "request_questions"
}

func (q *RequestQuestion) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}

// PlaceholderBinding registers an extra AI prompt placeholder whose value is the
// prior answer to the first question whose text contains Match
type PlaceholderBinding struct {
	Placeholder string `json:"placeholder"`
	Match       string `json:"match"`
}

// OptionItem is a selectable choice materialized per request. Never persisted.
type OptionItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// OptionTemplate describes where a question's choices come from
type OptionTemplate struct {
	ID                uuid.UUID                        `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string                           `gorm:"not null" json:"name"`
	SourceType        string                           `gorm:"not null" json:"source_type"`
	StaticOptions     datatypes.JSONSlice[OptionItem] `json:"static_options,omitempty"`
	DemoItemSlug      string                           `json:"demo_item_slug,omitempty"`
	ProductTemplateID *uuid.UUID                       `gorm:"type:uuid" json:"product_template_id,omitempty"`
	CreatedAt         time.Time                        `json:"created_at"`
	UpdatedAt         time.Time                        `json:"updated_at"`
}

// TableName specifies the table name for the OptionTemplate model
func (OptionTemplate) TableName() string {
	return "option_templates"
}

func (t *OptionTemplate) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// DesignStyle is a selectable art style, global when ProductID is nil
type DesignStyle struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index" json:"product_id,omitempty"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	ImageURL    string     `json:"image_url"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	SortOrder   int        `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the DesignStyle model
func (DesignStyle) TableName() string {
	return "design_styles"
}

func (s *DesignStyle) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// QuestionDemoItem is an illustrative choice (shapes, finishes...) grouped by slug
type QuestionDemoItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionSlug string    `gorm:"not null;index" json:"question_slug"`
	Name         string    `gorm:"not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	ImageURL     string    `json:"image_url"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	SortOrder    int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the QuestionDemoItem model
func (QuestionDemoItem) TableName() string {
	return "question_demo_items"
}

func (d *QuestionDemoItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// CustomTemplate is a nested sub-questionnaire
type CustomTemplate struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string           `gorm:"not null" json:"name"`
	Questions []CustomQuestion `gorm:"foreignKey:TemplateID" json:"questions,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the CustomTemplate model
func (CustomTemplate) TableName() string {
	return "custom_templates"
}

func (t *CustomTemplate) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// CustomQuestion belongs to a custom template and may open a further template
type CustomQuestion struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"template_id"`
	QuestionText     string     `gorm:"type:text;not null" json:"question_text"`
	QuestionType     string     `gorm:"not null;default:'text'" json:"question_type"`
	IsRequired       bool       `gorm:"not null" json:"is_required"`
	SortOrder        int        `gorm:"not null;default:0" json:"sort_order"`
	PlaceholderText  string     `json:"placeholder_text,omitempty"`
	OptionTemplateID *uuid.UUID `gorm:"type:uuid" json:"option_template_id,omitempty"`
	CustomTemplateID *uuid.UUID `gorm:"type:uuid" json:"custom_template_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName specifies the table name for the CustomQuestion model
func (CustomQuestion) TableName() string {
	return "custom_questions"
}

func (q *CustomQuestion) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}

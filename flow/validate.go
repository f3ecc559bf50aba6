package flow

import (
	"fmt"
	"regexp"

	"github.com/sticker-studio/sticker-studio-api/models"
)

// EmailPattern is the address format accepted for email questions
var EmailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Question is the part of a question definition the flow needs
type Question struct {
	ID            string
	Text          string
	Type          string
	Required      bool
	AllowCustom   bool
	HasCustomFlow bool
}

// FromRequestQuestion adapts a stored product question
func FromRequestQuestion(q models.RequestQuestion) Question {
	return Question{
		ID:            q.ID.String(),
		Text:          q.QuestionText,
		Type:          q.QuestionType,
		Required:      q.IsRequired,
		AllowCustom:   q.AllowCustom,
		HasCustomFlow: q.CustomTemplateID != nil,
	}
}

// FromCustomQuestion adapts a question of a custom sub-questionnaire
func FromCustomQuestion(q models.CustomQuestion) Question {
	return Question{
		ID:            q.ID.String(),
		Text:          q.QuestionText,
		Type:          q.QuestionType,
		Required:      q.IsRequired,
		HasCustomFlow: q.CustomTemplateID != nil,
	}
}

// ValidationError explains why an answer cannot move the flow forward
type ValidationError struct {
	QuestionID string
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateAnswer applies the forward-navigation gate to one answer.
// File uploads never block. Optional questions only block on a malformed
// email address.
func ValidateAnswer(q Question, v models.AnswerValue) error {
	if q.Type == models.QuestionTypeFileUpload {
		return nil
	}

	if v.Kind == models.AnswerCustom {
		if !q.Required {
			return nil
		}
		if !v.CustomFlowComplete() {
			return &ValidationError{QuestionID: q.ID, Message: "Please describe your idea before continuing"}
		}
		return nil
	}

	empty := v.IsEmpty()
	if empty {
		if q.Required {
			return &ValidationError{QuestionID: q.ID, Message: "This question is required"}
		}
		return nil
	}

	switch q.Type {
	case models.QuestionTypeEmail:
		if !EmailPattern.MatchString(v.Text) {
			return &ValidationError{QuestionID: q.ID, Message: "Please enter a valid email address"}
		}
	case models.QuestionTypeStyle:
		if q.Required && v.PickedID() == "" {
			return &ValidationError{QuestionID: q.ID, Message: "Please pick a style or describe your own"}
		}
	}
	return nil
}

// ValidateAll checks every question against the answer set, keyed by question id
func ValidateAll(questions []Question, answers map[string]models.AnswerValue) error {
	for _, q := range questions {
		if err := ValidateAnswer(q, answers[q.ID]); err != nil {
			return fmt.Errorf("%s: %w", q.Text, err)
		}
	}
	return nil
}

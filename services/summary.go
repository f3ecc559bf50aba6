package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

// SummaryItem is one answered question in human-readable form
type SummaryItem struct {
	QuestionID string                `json:"question_id"`
	Question   string                `json:"question"`
	Answer     string                `json:"answer"`
	Lines      []models.LabeledValue `json:"lines,omitempty"`
	FileURL    string                `json:"file_url,omitempty"`
}

// RequestSummary is shared by the review step and the confirmation emails
type RequestSummary struct {
	RequestID    uuid.UUID     `json:"request_id"`
	DesignCode   string        `json:"design_code"`
	Email        string        `json:"email"`
	Status       string        `json:"status"`
	ProductTitle string        `json:"product_title"`
	StyleName    string        `json:"style_name,omitempty"`
	DiscountCode string        `json:"discount_code,omitempty"`
	AmountCents  *int64        `json:"amount_cents,omitempty"`
	Currency     string        `json:"currency"`
	Items        []SummaryItem `json:"items"`
}

// FormattedAmount renders the charged amount, empty when unknown
func (s *RequestSummary) FormattedAmount() string {
	if s.AmountCents == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", formatCents(*s.AmountCents), strings.ToUpper(s.Currency))
}

// SummaryBuilder resolves stored answers against the product's questions
type SummaryBuilder struct {
	requests  repositories.DesignRequestRepository
	questions QuestionService
}

func NewSummaryBuilder(requests repositories.DesignRequestRepository, questions QuestionService) *SummaryBuilder {
	return &SummaryBuilder{requests: requests, questions: questions}
}

// Build expects req with Product (and Style when set) loaded
func (b *SummaryBuilder) Build(ctx context.Context, req *models.DesignRequest) (*RequestSummary, error) {
	summary := &RequestSummary{
		RequestID:   req.ID,
		DesignCode:  req.DesignCode,
		Email:       req.Email,
		Status:      req.Status,
		AmountCents: req.AmountCents,
		Currency:    "usd",
		Items:       []SummaryItem{},
	}
	if req.Product != nil {
		summary.ProductTitle = req.Product.Title
		summary.Currency = req.Product.Currency
	}
	if req.Style != nil {
		summary.StyleName = req.Style.Name
	}
	if req.DiscountCode != nil {
		summary.DiscountCode = *req.DiscountCode
	}

	_, questions, err := b.questions.ListForProduct(ctx, ProductRef{ID: req.ProductID})
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	current, err := b.requests.CurrentAnswers(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	byQuestion := make(map[uuid.UUID]*models.AnswerHistoryEntry, len(current))
	for i := range current {
		byQuestion[current[i].QuestionID] = &current[i]
	}

	for _, q := range questions {
		entry, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		value := models.DecodeAnswer(entry)
		if value.IsEmpty() {
			continue
		}
		item := SummaryItem{QuestionID: q.ID.String(), Question: q.QuestionText}

		switch {
		case value.Kind == models.AnswerCustom:
			labels := map[string]string{}
			if q.CustomTemplateID != nil {
				if l, err := b.questions.CustomLabels(ctx, *q.CustomTemplateID); err == nil {
					labels = l
				}
			}
			item.Lines = value.SummarizeFields(labels)
			item.Answer = "Custom idea"
		case value.FileURL != "":
			item.FileURL = value.FileURL
			item.Answer = "Image uploaded: " + value.FileURL
		case len(value.Options) > 0:
			names := make([]string, 0, len(value.Options))
			for _, id := range value.Options {
				names = append(names, optionName(q.OptionItems, id))
			}
			item.Answer = strings.Join(names, ", ")
		default:
			item.Answer = optionName(q.OptionItems, strings.TrimSpace(value.Text))
		}
		summary.Items = append(summary.Items, item)
	}
	return summary, nil
}

// optionName maps a choice id to its display name, returning the value itself
// when it is free text
func optionName(items []models.OptionItem, value string) string {
	for _, it := range items {
		if it.ID == value {
			return it.Name
		}
	}
	return value
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

// MaxCustomFlowDepth bounds how deep nested custom templates are resolved
const MaxCustomFlowDepth = 5

// ResolvedQuestion is a product question with its choices materialized
type ResolvedQuestion struct {
	models.RequestQuestion
	OptionSource  string              `json:"option_source,omitempty"`
	OptionItems   []models.OptionItem `json:"option_items"`
	HasCustomFlow bool                `json:"has_custom_flow"`
}

// ResolvedCustomQuestion is one question of a custom sub-questionnaire
type ResolvedCustomQuestion struct {
	models.CustomQuestion
	OptionItems   []models.OptionItem `json:"option_items"`
	HasCustomFlow bool                `json:"has_custom_flow"`
	SubFlow       *CustomFlow         `json:"sub_flow,omitempty"`
}

// CustomFlow is a resolved custom template
type CustomFlow struct {
	TemplateID uuid.UUID                `json:"template_id"`
	Name       string                   `json:"name"`
	Questions  []ResolvedCustomQuestion `json:"questions"`
}

// QuestionService assembles questionnaires
type QuestionService interface {
	ListForProduct(ctx context.Context, ref ProductRef) (*models.Product, []ResolvedQuestion, error)
	CustomQuestions(ctx context.Context, templateID uuid.UUID) (*CustomFlow, error)
	ListStyles(ctx context.Context, productID uuid.UUID) ([]models.DesignStyle, error)
	// Style returns an active style offered for the product
	Style(ctx context.Context, productID, styleID uuid.UUID) (*models.DesignStyle, error)
	// CustomLabels maps custom question ids of the template tree to their text
	CustomLabels(ctx context.Context, templateID uuid.UUID) (map[string]string, error)
}

type questionService struct {
	products  repositories.ProductRepository
	questions repositories.QuestionRepository
	log       *logger.Logger
}

func NewQuestionService(products repositories.ProductRepository, questions repositories.QuestionRepository, baseLog *logger.Logger) QuestionService {
	return &questionService{
		products:  products,
		questions: questions,
		log:       baseLog.With("service", "QuestionService"),
	}
}

func (s *questionService) ListForProduct(ctx context.Context, ref ProductRef) (*models.Product, []ResolvedQuestion, error) {
	product, err := loadProduct(ctx, s.products, ref)
	if err != nil {
		return nil, nil, err
	}

	questions, err := s.questions.ListActiveByProduct(ctx, product.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list questions: %w", err)
	}

	out := make([]ResolvedQuestion, 0, len(questions))
	for _, q := range questions {
		rq := ResolvedQuestion{
			RequestQuestion: q,
			OptionItems:     []models.OptionItem{},
			HasCustomFlow:   q.CustomTemplateID != nil,
		}
		if q.OptionTemplateID != nil {
			rq.OptionSource, rq.OptionItems = s.resolveOptions(ctx, product, q.QuestionText, *q.OptionTemplateID)
		}
		out = append(out, rq)
	}
	return product, out, nil
}

func (s *questionService) ListStyles(ctx context.Context, productID uuid.UUID) ([]models.DesignStyle, error) {
	styles, err := s.questions.ListStyles(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list styles: %w", err)
	}
	return styles, nil
}

func (s *questionService) Style(ctx context.Context, productID, styleID uuid.UUID) (*models.DesignStyle, error) {
	style, err := s.questions.GetStyle(ctx, styleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("style %s: %w", styleID, ErrNotFound)
		}
		return nil, fmt.Errorf("get style: %w", err)
	}
	if !style.IsActive {
		return nil, fmt.Errorf("%w: style %q is not available", ErrInvalidInput, style.Name)
	}
	if style.ProductID != nil && *style.ProductID != productID {
		return nil, fmt.Errorf("%w: style %q is not offered for this product", ErrInvalidInput, style.Name)
	}
	return style, nil
}

func (s *questionService) CustomQuestions(ctx context.Context, templateID uuid.UUID) (*CustomFlow, error) {
	return s.resolveCustomFlow(ctx, templateID, 1, map[uuid.UUID]bool{})
}

func (s *questionService) resolveCustomFlow(ctx context.Context, templateID uuid.UUID, depth int, seen map[uuid.UUID]bool) (*CustomFlow, error) {
	tpl, err := s.questions.GetCustomTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("load custom template: %w", err)
	}
	seen[templateID] = true
	defer delete(seen, templateID)

	flow := &CustomFlow{TemplateID: tpl.ID, Name: tpl.Name, Questions: make([]ResolvedCustomQuestion, 0, len(tpl.Questions))}
	for _, q := range tpl.Questions {
		rq := ResolvedCustomQuestion{
			CustomQuestion: q,
			OptionItems:    []models.OptionItem{},
			HasCustomFlow:  q.CustomTemplateID != nil,
		}
		if q.OptionTemplateID != nil {
			_, rq.OptionItems = s.resolveOptions(ctx, nil, q.QuestionText, *q.OptionTemplateID)
		}
		if q.CustomTemplateID != nil {
			switch {
			case depth >= MaxCustomFlowDepth:
				s.log.Warn("Custom flow nesting limit reached", "template_id", templateID.String(), "depth", depth)
			case seen[*q.CustomTemplateID]:
				s.log.Warn("Custom flow cycle detected", "template_id", q.CustomTemplateID.String())
			default:
				sub, err := s.resolveCustomFlow(ctx, *q.CustomTemplateID, depth+1, seen)
				if err != nil && !errors.Is(err, ErrTemplateNotFound) {
					return nil, err
				}
				rq.SubFlow = sub
			}
		}
		flow.Questions = append(flow.Questions, rq)
	}
	return flow, nil
}

func (s *questionService) CustomLabels(ctx context.Context, templateID uuid.UUID) (map[string]string, error) {
	flow, err := s.CustomQuestions(ctx, templateID)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string)
	var walk func(f *CustomFlow)
	walk = func(f *CustomFlow) {
		for _, q := range f.Questions {
			labels[q.ID.String()] = q.QuestionText
			if q.SubFlow != nil {
				walk(q.SubFlow)
			}
		}
	}
	walk(flow)
	return labels, nil
}

// resolveOptions turns an option template into items. Failures degrade to an
// empty list. product is nil for custom questions.
func (s *questionService) resolveOptions(ctx context.Context, product *models.Product, questionText string, templateID uuid.UUID) (string, []models.OptionItem) {
	items := []models.OptionItem{}

	tpl, err := s.questions.GetOptionTemplate(ctx, templateID)
	if err != nil {
		s.log.Warn("Option template unavailable", "option_template_id", templateID.String(), "error", err)
		return "", items
	}

	switch tpl.SourceType {
	case models.SourceStatic:
		items = append(items, tpl.StaticOptions...)

	case models.SourceDesignStyles:
		productID := uuid.Nil
		if product != nil {
			productID = product.ID
		}
		styles, err := s.questions.ListStyles(ctx, productID)
		if err != nil {
			s.log.Warn("Could not load design styles", "option_template_id", templateID.String(), "error", err)
			break
		}
		for _, st := range styles {
			items = append(items, models.OptionItem{
				ID:          st.ID.String(),
				Name:        st.Name,
				Description: st.Description,
				ImageURL:    st.ImageURL,
			})
		}

	case models.SourceDemoItems:
		slug := tpl.DemoItemSlug
		if slug == "" {
			slug = demoSlugFromText(questionText)
		}
		if slug == "" {
			s.log.Warn("No demo item slug configured", "option_template_id", templateID.String())
			break
		}
		demo, err := s.questions.ListDemoItems(ctx, slug)
		if err != nil {
			s.log.Warn("Could not load demo items", "slug", slug, "error", err)
			break
		}
		for _, d := range demo {
			items = append(items, models.OptionItem{
				ID:          d.ID.String(),
				Name:        d.Name,
				Description: d.Description,
				ImageURL:    d.ImageURL,
			})
		}

	case models.SourceProducts:
		exclude := uuid.Nil
		if product != nil {
			exclude = product.ID
		}
		products, err := s.products.ListSelectable(ctx, exclude, tpl.ProductTemplateID)
		if err != nil {
			s.log.Warn("Could not load selectable products", "option_template_id", templateID.String(), "error", err)
			break
		}
		for _, p := range products {
			items = append(items, models.OptionItem{
				ID:          p.ID.String(),
				Name:        p.Title,
				Description: p.Subtitle,
				ImageURL:    p.ImageURL,
			})
		}

	default:
		s.log.Warn("Unknown option source", "source_type", tpl.SourceType, "option_template_id", templateID.String())
	}
	return tpl.SourceType, items
}

// demoSlugFromText is the fallback for templates created before demo_item_slug existed
func demoSlugFromText(questionText string) string {
	text := strings.ToLower(questionText)
	switch {
	case strings.Contains(text, "shape"):
		return "shape"
	case strings.Contains(text, "style"):
		return "style"
	}
	return ""
}

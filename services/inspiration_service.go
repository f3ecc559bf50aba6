package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

// Built-in prompt placeholders
const (
	PlaceholderProductTitle    = "##product_title##"
	PlaceholderProductSubtitle = "##product_subtitle##"
	PlaceholderDescription     = "##description##"
)

const defaultInspirationPrompt = `You are a creative assistant for a custom sticker shop.
The customer is designing a "##product_title##" (##product_subtitle##).
Product description: ##description##

Suggest one short, vivid idea for their sticker design. Respond with JSON only:
{"text": "<the idea in one or two sentences>", "placeholders": {"<field>": "<suggested value>"}}`

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

type InspirationInput struct {
	DesignRequestID *uuid.UUID
	QuestionID      uuid.UUID
	// Answers are the client's current answers keyed by question id; they
	// override stored answers of the same question
	Answers map[string]json.RawMessage
}

type Inspiration struct {
	Text         string            `json:"text"`
	Placeholders map[string]string `json:"placeholders"`
}

// InspirationService generates AI suggestions for is_ai_generated questions
type InspirationService interface {
	Generate(ctx context.Context, in InspirationInput) (*Inspiration, error)
}

type inspirationService struct {
	questions repositories.QuestionRepository
	resolver  QuestionService
	products  repositories.ProductRepository
	requests  repositories.DesignRequestRepository
	logs      repositories.AILogRepository
	generator TextGenerator
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// NewInspirationService creates the service. generator may be nil when no
// API key is configured, in which case Generate returns ErrNotConfigured.
func NewInspirationService(
	questions repositories.QuestionRepository,
	resolver QuestionService,
	products repositories.ProductRepository,
	requests repositories.DesignRequestRepository,
	logs repositories.AILogRepository,
	generator TextGenerator,
	m *metrics.Metrics,
	baseLog *logger.Logger,
) InspirationService {
	return &inspirationService{
		questions: questions,
		resolver:  resolver,
		products:  products,
		requests:  requests,
		logs:      logs,
		generator: generator,
		metrics:   m,
		log:       baseLog.With("service", "InspirationService"),
	}
}

func (s *inspirationService) Generate(ctx context.Context, in InspirationInput) (*Inspiration, error) {
	question, err := s.questions.GetByID(ctx, in.QuestionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("load question: %w", err)
	}
	if !question.IsAIGenerated {
		return nil, ErrAINotEnabled
	}
	if s.generator == nil {
		return nil, ErrNotConfigured
	}

	product, siblings, err := s.resolver.ListForProduct(ctx, ProductRef{ID: question.ProductID})
	if err != nil {
		return nil, err
	}
	answers, err := s.collectAnswers(ctx, in)
	if err != nil {
		return nil, err
	}
	if product.IsHiddenDefault() {
		if chosen := s.chosenProduct(ctx, siblings, answers); chosen != nil {
			product = chosen
		}
	}

	prompt := BuildPrompt(question, product, siblings, answers)
	raw, genErr := s.generator.Generate(ctx, prompt)
	s.audit(ctx, in, question.ID, prompt, raw, genErr)
	if genErr != nil {
		s.metrics.AIGeneration("error")
		s.log.Error("AI generation failed", "question_id", question.ID.String(), "error", genErr)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, genErr)
	}

	s.metrics.AIGeneration("success")
	return ParseInspiration(raw), nil
}

// collectAnswers merges stored current answers with the client's answers
func (s *inspirationService) collectAnswers(ctx context.Context, in InspirationInput) (map[string]models.AnswerValue, error) {
	out := map[string]models.AnswerValue{}
	if in.DesignRequestID != nil {
		current, err := s.requests.CurrentAnswers(ctx, *in.DesignRequestID)
		if err != nil {
			return nil, fmt.Errorf("load answers: %w", err)
		}
		for i := range current {
			out[current[i].QuestionID.String()] = models.DecodeAnswer(&current[i])
		}
	}
	for key, raw := range in.Answers {
		v, err := models.DecodeRawAnswer(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: answer %s: %v", ErrInvalidInput, key, err)
		}
		out[key] = v
	}
	return out, nil
}

// chosenProduct finds the product picked on the product-choice question,
// the question whose options come from the products source
func (s *inspirationService) chosenProduct(ctx context.Context, questions []ResolvedQuestion, answers map[string]models.AnswerValue) *models.Product {
	for _, q := range questions {
		if q.OptionSource != models.SourceProducts {
			continue
		}
		picked := answers[q.ID.String()].PickedID()
		if picked == "" {
			continue
		}
		if id, err := uuid.Parse(picked); err == nil {
			if p, err := s.products.GetByID(ctx, id); err == nil {
				return p
			}
		}
		if p, err := s.products.GetBySlug(ctx, picked); err == nil {
			return p
		}
		// free text answer: match by option name
		for _, item := range q.OptionItems {
			if strings.EqualFold(item.Name, picked) {
				if id, err := uuid.Parse(item.ID); err == nil {
					if p, err := s.products.GetByID(ctx, id); err == nil {
						return p
					}
				}
			}
		}
		s.log.Warn("Product choice answer did not resolve", "question_id", q.ID.String(), "answer", picked)
	}
	return nil
}

func (s *inspirationService) audit(ctx context.Context, in InspirationInput, questionID uuid.UUID, prompt, response string, genErr error) {
	entry := &models.AIGenerationLog{
		DesignRequestID: in.DesignRequestID,
		QuestionID:      questionID,
		Model:           s.generator.Model(),
		Prompt:          prompt,
		Response:        response,
		Success:         genErr == nil,
	}
	if genErr != nil {
		msg := genErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.log.Error("Failed to write AI generation log", "question_id", questionID.String(), "error", err)
	}
}

// BuildPrompt substitutes the built-in and configured placeholders. A
// configured placeholder takes the answer of the first other question whose
// text contains its match string, case-insensitively.
func BuildPrompt(question *models.RequestQuestion, product *models.Product, questions []ResolvedQuestion, answers map[string]models.AnswerValue) string {
	tmpl := question.AIPromptTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = defaultInspirationPrompt
	}
	pairs := []string{
		PlaceholderProductTitle, product.Title,
		PlaceholderProductSubtitle, product.Subtitle,
		PlaceholderDescription, product.Description,
	}
	for _, b := range question.AIPlaceholderConfig {
		if b.Placeholder == "" {
			continue
		}
		pairs = append(pairs, b.Placeholder, boundAnswer(b.Match, question.ID, questions, answers))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func boundAnswer(match string, self uuid.UUID, questions []ResolvedQuestion, answers map[string]models.AnswerValue) string {
	needle := strings.ToLower(strings.TrimSpace(match))
	if needle == "" {
		return ""
	}
	for _, q := range questions {
		if q.ID == self || !strings.Contains(strings.ToLower(q.QuestionText), needle) {
			continue
		}
		v, ok := answers[q.ID.String()]
		if !ok || v.IsEmpty() {
			return ""
		}
		return answerText(q, v)
	}
	return ""
}

// answerText renders an answer for a prompt
func answerText(q ResolvedQuestion, v models.AnswerValue) string {
	switch {
	case v.Kind == models.AnswerCustom:
		lines := v.SummarizeFields(nil)
		parts := make([]string, 0, len(lines))
		for _, l := range lines {
			parts = append(parts, l.Value)
		}
		return strings.Join(parts, "; ")
	case v.FileURL != "":
		return v.FileURL
	case len(v.Options) > 0:
		names := make([]string, 0, len(v.Options))
		for _, id := range v.Options {
			names = append(names, optionName(q.OptionItems, id))
		}
		return strings.Join(names, ", ")
	default:
		return optionName(q.OptionItems, strings.TrimSpace(v.Text))
	}
}

// ParseInspiration extracts the JSON object from a model response: a fenced
// block first, then the outermost braces. Anything unparseable becomes the
// text itself with no placeholders.
func ParseInspiration(raw string) *Inspiration {
	raw = strings.TrimSpace(raw)
	candidates := make([]string, 0, 2)
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}

	for _, c := range candidates {
		var parsed struct {
			Text         string                 `json:"text"`
			Placeholders map[string]interface{} `json:"placeholders"`
		}
		if err := json.Unmarshal([]byte(c), &parsed); err != nil || strings.TrimSpace(parsed.Text) == "" {
			continue
		}
		out := &Inspiration{Text: strings.TrimSpace(parsed.Text), Placeholders: map[string]string{}}
		for k, v := range parsed.Placeholders {
			if s, ok := v.(string); ok {
				out.Placeholders[k] = s
			} else if v != nil {
				out.Placeholders[k] = fmt.Sprint(v)
			}
		}
		return out
	}
	return &Inspiration{Text: raw, Placeholders: map[string]string{}}
}

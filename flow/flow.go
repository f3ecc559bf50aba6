// Package flow drives the design request wizard: welcome, one step per
// question, review, payment and a terminal success or error step.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
)

type State string

const (
	StateWelcome  State = "welcome"
	StateQuestion State = "question"
	StateReview   State = "review"
	StatePayment  State = "payment"
	StateSuccess  State = "success"
	StateError    State = "error"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed from the current step")
	ErrNoCustomFlow      = errors.New("question does not offer a custom flow")
	ErrNotInCustomFlow   = errors.New("no custom flow in progress")
	ErrIncompleteCustom  = errors.New("custom answer is incomplete")
)

// Saver persists the accumulated answer set. Failures never block the flow.
type Saver interface {
	SaveAnswers(ctx context.Context, answers map[string]models.AnswerValue) error
}

// Submitter marks the request submitted before payment
type Submitter interface {
	Submit(ctx context.Context) error
}

// frame is one level of a nested custom sub-flow
type frame struct {
	parentID  string
	questions []Question
	fields    map[string]string
}

// Controller is the wizard state machine. It is not safe for concurrent use.
type Controller struct {
	questions []Question
	step      int
	answers   map[string]models.AnswerValue
	custom    []*frame

	saver     Saver
	submitter Submitter
	log       *logger.Logger
}

func NewController(questions []Question, saver Saver, submitter Submitter, baseLog *logger.Logger) *Controller {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Controller{
		questions: questions,
		answers:   make(map[string]models.AnswerValue),
		saver:     saver,
		submitter: submitter,
		log:       baseLog.With("component", "FlowController"),
	}
}

// Step returns the current step index: 0 welcome, 1..N questions, N+1 review,
// N+2 payment, N+3 success, N+4 error
func (c *Controller) Step() int {
	return c.step
}

func (c *Controller) reviewStep() int  { return len(c.questions) + 1 }
func (c *Controller) paymentStep() int { return len(c.questions) + 2 }
func (c *Controller) successStep() int { return len(c.questions) + 3 }
func (c *Controller) errorStep() int   { return len(c.questions) + 4 }

func (c *Controller) State() State {
	switch {
	case c.step == 0:
		return StateWelcome
	case c.step <= len(c.questions):
		return StateQuestion
	case c.step == c.reviewStep():
		return StateReview
	case c.step == c.paymentStep():
		return StatePayment
	case c.step == c.successStep():
		return StateSuccess
	default:
		return StateError
	}
}

// CurrentQuestion returns the question shown at a question step
func (c *Controller) CurrentQuestion() (Question, bool) {
	if c.State() != StateQuestion {
		return Question{}, false
	}
	return c.questions[c.step-1], true
}

// Answers returns a copy of the accumulated answers keyed by question id
func (c *Controller) Answers() map[string]models.AnswerValue {
	out := make(map[string]models.AnswerValue, len(c.answers))
	for k, v := range c.answers {
		out[k] = v
	}
	return out
}

// SetAnswer records the answer to the current question
func (c *Controller) SetAnswer(v models.AnswerValue) error {
	q, ok := c.CurrentQuestion()
	if !ok || len(c.custom) > 0 {
		return ErrInvalidTransition
	}
	if v.Kind == "" {
		v.Kind = models.AnswerSimple
	}
	c.answers[q.ID] = v
	return nil
}

// Next moves forward one step. Question steps are gated by validation and
// persist the answers first. At review it submits.
func (c *Controller) Next(ctx context.Context) error {
	if len(c.custom) > 0 {
		return ErrInvalidTransition
	}
	switch c.State() {
	case StateWelcome:
		c.step = 1
		return nil
	case StateQuestion:
		q, _ := c.CurrentQuestion()
		if err := ValidateAnswer(q, c.answers[q.ID]); err != nil {
			return err
		}
		c.save(ctx)
		c.step++
		return nil
	case StateReview:
		return c.Submit(ctx)
	default:
		return ErrInvalidTransition
	}
}

func (c *Controller) save(ctx context.Context) {
	if c.saver == nil {
		return
	}
	if err := c.saver.SaveAnswers(ctx, c.Answers()); err != nil {
		c.log.Warn("Autosave failed, continuing", "step", c.step, "error", err)
	}
}

// Back returns to the previous step from a question step or review
func (c *Controller) Back() error {
	if len(c.custom) > 0 {
		return ErrInvalidTransition
	}
	switch c.State() {
	case StateQuestion, StateReview:
		c.step--
		return nil
	default:
		return ErrInvalidTransition
	}
}

// Submit moves review to payment once the request is marked submitted.
// A failed submission leaves the flow on review.
func (c *Controller) Submit(ctx context.Context) error {
	if c.State() != StateReview {
		return ErrInvalidTransition
	}
	if c.submitter != nil {
		if err := c.submitter.Submit(ctx); err != nil {
			c.log.Error("Submission failed", "error", err)
			return fmt.Errorf("submit design request: %w", err)
		}
	}
	c.step = c.paymentStep()
	return nil
}

func (c *Controller) PaymentSucceeded() error {
	if c.State() != StatePayment {
		return ErrInvalidTransition
	}
	c.step = c.successStep()
	return nil
}

func (c *Controller) PaymentFailed() error {
	if c.State() != StatePayment {
		return ErrInvalidTransition
	}
	c.step = c.errorStep()
	return nil
}

// EnterCustomFlow swaps the current question for its sub-questionnaire.
// Called again while inside a sub-flow it nests under the given field.
func (c *Controller) EnterCustomFlow(fieldID string, questions []Question) error {
	if len(c.custom) == 0 {
		q, ok := c.CurrentQuestion()
		if !ok {
			return ErrInvalidTransition
		}
		if !q.AllowCustom && !q.HasCustomFlow {
			return ErrNoCustomFlow
		}
		fieldID = q.ID
	} else {
		top := c.custom[len(c.custom)-1]
		known := false
		for _, sq := range top.questions {
			if sq.ID == fieldID && sq.HasCustomFlow {
				known = true
				break
			}
		}
		if !known {
			return ErrNoCustomFlow
		}
	}
	c.custom = append(c.custom, &frame{
		parentID:  fieldID,
		questions: questions,
		fields:    make(map[string]string),
	})
	return nil
}

// InCustomFlow reports the nesting depth of the active sub-flow, 0 if none
func (c *Controller) InCustomFlow() int {
	return len(c.custom)
}

// SetCustomField records one value inside the innermost sub-flow
func (c *Controller) SetCustomField(questionID, value string) error {
	if len(c.custom) == 0 {
		return ErrNotInCustomFlow
	}
	c.custom[len(c.custom)-1].fields[questionID] = value
	return nil
}

// CompleteCustomFlow closes the innermost sub-flow. Its fields become one
// custom answer on the parent question, or one JSON field of the parent
// sub-flow when nested.
func (c *Controller) CompleteCustomFlow() error {
	if len(c.custom) == 0 {
		return ErrNotInCustomFlow
	}
	top := c.custom[len(c.custom)-1]
	value := models.AnswerValue{Kind: models.AnswerCustom, Fields: top.fields}
	if !value.CustomFlowComplete() {
		return ErrIncompleteCustom
	}
	for _, q := range top.questions {
		if q.Type == models.QuestionTypeEmail && top.fields[q.ID] != "" {
			if err := ValidateAnswer(q, models.AnswerValue{Kind: models.AnswerSimple, Text: top.fields[q.ID]}); err != nil {
				return err
			}
		}
	}

	c.custom = c.custom[:len(c.custom)-1]
	if len(c.custom) == 0 {
		c.answers[top.parentID] = value
		return nil
	}
	encoded, err := json.Marshal(top.fields)
	if err != nil {
		return fmt.Errorf("encode nested custom answer: %w", err)
	}
	c.custom[len(c.custom)-1].fields[top.parentID] = string(encoded)
	return nil
}

// CancelCustomFlow discards the innermost sub-flow
func (c *Controller) CancelCustomFlow() error {
	if len(c.custom) == 0 {
		return ErrNotInCustomFlow
	}
	c.custom = c.custom[:len(c.custom)-1]
	return nil
}

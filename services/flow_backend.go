package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/models"
)

// FlowBackend connects a flow.Controller to one stored design request
type FlowBackend struct {
	requests  DesignRequestService
	requestID uuid.UUID
}

func NewFlowBackend(requests DesignRequestService, requestID uuid.UUID) *FlowBackend {
	return &FlowBackend{requests: requests, requestID: requestID}
}

// SaveAnswers writes the accumulated answer set
func (b *FlowBackend) SaveAnswers(ctx context.Context, answers map[string]models.AnswerValue) error {
	raw := make(map[string]json.RawMessage, len(answers))
	for id, v := range answers {
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Errorf("encode answer %s: %w", id, err)
		}
		raw[id] = data
	}
	_, err := b.requests.Update(ctx, UpdateDesignRequestInput{ID: b.requestID, Answers: raw})
	return err
}

// Submit moves the request to SUBMITTED
func (b *FlowBackend) Submit(ctx context.Context) error {
	status := models.StatusSubmitted
	_, err := b.requests.Update(ctx, UpdateDesignRequestInput{ID: b.requestID, Status: &status})
	return err
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"github.com/sticker-studio/sticker-studio-api/utils"
)

type DesignFileUpload struct {
	File            *multipart.FileHeader
	DesignRequestID *uuid.UUID
	QuestionID      *uuid.UUID
}

type DesignFileResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	AnswerSaved bool   `json:"answer_saved"`
}

// DesignFileService validates, stores and optionally records design uploads
type DesignFileService interface {
	Upload(ctx context.Context, in DesignFileUpload) (*DesignFileResult, error)
}

type designFileService struct {
	storage   StorageService
	requests  repositories.DesignRequestRepository
	questions repositories.QuestionRepository
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewDesignFileService(
	storage StorageService,
	requests repositories.DesignRequestRepository,
	questions repositories.QuestionRepository,
	m *metrics.Metrics,
	baseLog *logger.Logger,
) DesignFileService {
	return &designFileService{
		storage:   storage,
		requests:  requests,
		questions: questions,
		metrics:   m,
		log:       baseLog.With("service", "DesignFileService"),
		now:       time.Now,
	}
}

// Upload rejects invalid files before touching storage or the database.
// When both a request and a question are given the file URL is saved as
// that question's answer; if the save fails the object is removed again.
// A nil storage backend means uploads are not configured.
func (s *designFileService) Upload(ctx context.Context, in DesignFileUpload) (*DesignFileResult, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("%w: file storage", ErrNotConfigured)
	}
	if in.File == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	file, err := utils.ValidateImageFile(in.File)
	if err != nil {
		s.metrics.Upload("rejected")
		return nil, err
	}

	var req *models.DesignRequest
	if in.DesignRequestID != nil {
		req, err = s.requests.GetByID(ctx, *in.DesignRequestID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrRequestNotFound
			}
			return nil, fmt.Errorf("load design request: %w", err)
		}
		if req.Status == models.StatusPaid {
			return nil, fmt.Errorf("%w: request is already paid", ErrConflict)
		}
	}
	if in.QuestionID != nil && req != nil {
		q, err := s.questions.GetByID(ctx, *in.QuestionID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrQuestionNotFound
			}
			return nil, fmt.Errorf("load question: %w", err)
		}
		if q.ProductID != req.ProductID {
			return nil, fmt.Errorf("%w: question does not belong to this request's product", ErrInvalidInput)
		}
	}

	requestKey := ""
	if req != nil {
		requestKey = req.ID.String()
	}
	key := utils.ObjectKey(requestKey, file.Filename, file.Extension, s.now())
	url, err := s.storage.Upload(ctx, key, file.Content, file.ContentType)
	if err != nil {
		s.metrics.Upload("error")
		s.log.Error("Design file upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	result := &DesignFileResult{URL: url, Key: key, ContentType: file.ContentType, Size: file.Size()}
	if req != nil && in.QuestionID != nil {
		if err := s.saveAnswer(ctx, req.ID, *in.QuestionID, url); err != nil {
			if delErr := s.storage.Delete(ctx, key); delErr != nil {
				s.log.Warn("Failed to remove orphaned upload", "key", key, "error", delErr)
			}
			s.metrics.Upload("error")
			return nil, err
		}
		result.AnswerSaved = true
	}

	s.metrics.Upload("success")
	s.log.Info("Design file uploaded", "key", key, "size", result.Size, "content_type", result.ContentType)
	return result, nil
}

func (s *designFileService) saveAnswer(ctx context.Context, requestID, questionID uuid.UUID, url string) error {
	raw, _ := json.Marshal(url)
	answer, err := models.ClassifyAnswer(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.requests.SaveAnswers(ctx, requestID, map[uuid.UUID]models.ClassifiedAnswer{questionID: answer}); err != nil {
		return fmt.Errorf("save upload answer: %w", err)
	}
	return nil
}

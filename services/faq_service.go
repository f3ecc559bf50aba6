package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/flow"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
)

const (
	defaultFAQPageSize = 20
	maxFAQPageSize     = 100
	maxFAQQuestionLen  = 2000
)

type SubmitFAQInput struct {
	Name     string
	Email    string
	Question string
}

type UpdateFAQInput struct {
	ID     uuid.UUID
	Answer *string
	Status *string
	// AccessToken and Subject identify the admin making the change
	AccessToken string
	Subject     string
}

type FAQPage struct {
	Items  []models.FAQSubmission `json:"items"`
	Total  int64                  `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type FAQService interface {
	Submit(ctx context.Context, in SubmitFAQInput) (*models.FAQSubmission, error)
	List(ctx context.Context, status string, limit, offset int) (*FAQPage, error)
	Update(ctx context.Context, in UpdateFAQInput) (*models.FAQSubmission, error)
}

type faqService struct {
	repo      repositories.FAQRepository
	directory AdminDirectory
	log       *logger.Logger
	now       func() time.Time
}

func NewFAQService(repo repositories.FAQRepository, directory AdminDirectory, baseLog *logger.Logger) FAQService {
	return &faqService{
		repo:      repo,
		directory: directory,
		log:       baseLog.With("service", "FAQService"),
		now:       time.Now,
	}
}

func (s *faqService) Submit(ctx context.Context, in SubmitFAQInput) (*models.FAQSubmission, error) {
	email := strings.TrimSpace(in.Email)
	question := strings.TrimSpace(in.Question)
	if !flow.EmailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if len(question) > maxFAQQuestionLen {
		return nil, fmt.Errorf("%w: question is too long", ErrInvalidInput)
	}

	sub := &models.FAQSubmission{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Question: question,
		Status:   models.FAQStatusNew,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create faq submission: %w", err)
	}
	s.log.Info("FAQ submission received", "faq_id", sub.ID.String())
	return sub, nil
}

func (s *faqService) List(ctx context.Context, status string, limit, offset int) (*FAQPage, error) {
	if status != "" && !validFAQStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = defaultFAQPageSize
	}
	if limit > maxFAQPageSize {
		limit = maxFAQPageSize
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list faq submissions: %w", err)
	}
	if items == nil {
		items = []models.FAQSubmission{}
	}
	return &FAQPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Update answers or re-files a submission. Setting an answer marks the
// submission answered unless a status is given explicitly.
func (s *faqService) Update(ctx context.Context, in UpdateFAQInput) (*models.FAQSubmission, error) {
	if in.Answer == nil && in.Status == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	updates := map[string]interface{}{}
	status := ""
	if in.Status != nil {
		status = *in.Status
		if !validFAQStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
	}
	if in.Answer != nil {
		answer := strings.TrimSpace(*in.Answer)
		if answer == "" {
			return nil, fmt.Errorf("%w: answer must not be empty", ErrInvalidInput)
		}
		updates["answer"] = answer
		if status == "" {
			status = models.FAQStatusAnswered
		}
	}
	updates["status"] = status
	if status == models.FAQStatusAnswered {
		updates["answered_at"] = s.now()
		if s.directory != nil && in.Subject != "" {
			updates["answered_by"] = s.directory.DisplayName(ctx, in.AccessToken, in.Subject)
		}
	}

	if err := s.repo.Update(ctx, in.ID, updates); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update faq submission: %w", err)
	}
	sub, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("reload faq submission: %w", err)
	}
	return sub, nil
}

func validFAQStatus(status string) bool {
	switch status {
	case models.FAQStatusNew, models.FAQStatusAnswered, models.FAQStatusArchived:
		return true
	}
	return false
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"gorm.io/gorm"
)

const (
	designCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	designCodeLength   = 8
	designCodePrefix   = "SD-"
	designCodeAttempts = 5
)

// PaymentOutcome is applied atomically when a payment settles
type PaymentOutcome struct {
	RequestID      uuid.UUID
	Status         string // target request status
	AmountCents    *int64
	DiscountCodeID *uuid.UUID // usage is incremented on success only
	Event          models.DesignRequestEvent
	// FromStatuses restricts the transition; a request in any other status
	// fails with ErrConflict. Empty means any status except PAID.
	FromStatuses []string
	// RequireDiscountSlot fails with ErrDiscountExhausted instead of
	// over-using a capped code
	RequireDiscountSlot bool
}

type DesignRequestRepository interface {
	Create(ctx context.Context, req *models.DesignRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DesignRequest, error)
	GetByCode(ctx context.Context, code string) (*models.DesignRequest, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	// MarkSubmitted moves a DRAFT (or already SUBMITTED) request to SUBMITTED
	MarkSubmitted(ctx context.Context, id uuid.UUID) error
	// SaveAnswers appends a version for every changed answer and flips the
	// previous current version off, all in one transaction. Returns the
	// number of versions written.
	SaveAnswers(ctx context.Context, requestID uuid.UUID, answers map[uuid.UUID]models.ClassifiedAnswer) (int, error)
	CurrentAnswers(ctx context.Context, requestID uuid.UUID) ([]models.AnswerHistoryEntry, error)
	AnswerHistory(ctx context.Context, requestID, questionID uuid.UUID) ([]models.AnswerHistoryEntry, error)
	// ApplyPaymentOutcome records the event, updates the request and counts
	// the discount use together. ErrDuplicate means the event was already
	// applied; ErrAlreadyPaid means the event was recorded but the request
	// was already PAID and nothing else changed.
	ApplyPaymentOutcome(ctx context.Context, outcome PaymentOutcome) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type designRequestRepository struct {
	db      *gorm.DB
	log     *logger.Logger
	newCode func() string
}

func NewDesignRequestRepository(db *gorm.DB, baseLog *logger.Logger) (DesignRequestRepository, error) {
	gen, err := nanoid.CustomASCII(designCodeAlphabet, designCodeLength)
	if err != nil {
		return nil, fmt.Errorf("design code generator: %w", err)
	}
	return &designRequestRepository{
		db:      db,
		log:     baseLog.With("repo", "DesignRequestRepository"),
		newCode: func() string { return designCodePrefix + gen() },
	}, nil
}

func (r *designRequestRepository) Create(ctx context.Context, req *models.DesignRequest) error {
	if req.Status == "" {
		req.Status = models.StatusDraft
	}
	preset := req.DesignCode != ""
	for attempt := 0; attempt < designCodeAttempts; attempt++ {
		if !preset {
			req.DesignCode = r.newCode()
		}
		err := r.db.WithContext(ctx).Create(req).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) || preset {
			return translate(err)
		}
		r.log.Warn("Design code collision, regenerating", "design_code", req.DesignCode, "attempt", attempt+1)
		req.ID = uuid.Nil
	}
	return fmt.Errorf("could not allocate a unique design code: %w", ErrDuplicate)
}

func (r *designRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DesignRequest, error) {
	var req models.DesignRequest
	err := r.db.WithContext(ctx).Preload("Product").Preload("Style").Where("id = ?", id).Take(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *designRequestRepository) GetByCode(ctx context.Context, code string) (*models.DesignRequest, error) {
	var req models.DesignRequest
	err := r.db.WithContext(ctx).Preload("Product").Preload("Style").Where("design_code = ?", code).Take(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *designRequestRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.DesignRequest{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *designRequestRepository) MarkSubmitted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.DesignRequest{}).
		Where("id = ? AND status IN ?", id, []string{models.StatusDraft, models.StatusSubmitted}).
		Updates(map[string]interface{}{"status": models.StatusSubmitted, "submitted_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (r *designRequestRepository) SaveAnswers(ctx context.Context, requestID uuid.UUID, answers map[uuid.UUID]models.ClassifiedAnswer) (int, error) {
	if len(answers) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, questionID := range ids {
			answer := answers[questionID]

			var current models.AnswerHistoryEntry
			err := tx.Where("design_request_id = ? AND question_id = ? AND is_current = ?", requestID, questionID, true).
				Take(&current).Error
			found := err == nil
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if found && answer.Equal(&current) {
				continue
			}

			var maxVersion int
			if err := tx.Model(&models.AnswerHistoryEntry{}).
				Where("design_request_id = ? AND question_id = ?", requestID, questionID).
				Select("COALESCE(MAX(version), 0)").
				Scan(&maxVersion).Error; err != nil {
				return err
			}

			if found {
				if err := tx.Model(&models.AnswerHistoryEntry{}).
					Where("id = ?", current.ID).
					Update("is_current", false).Error; err != nil {
					return err
				}
			}

			entry := models.AnswerHistoryEntry{
				DesignRequestID: requestID,
				QuestionID:      questionID,
				AnswerText:      answer.Text,
				AnswerOptions:   answer.Options,
				AnswerFileURL:   answer.FileURL,
				Version:         maxVersion + 1,
				IsCurrent:       true,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return written, nil
}

func (r *designRequestRepository) CurrentAnswers(ctx context.Context, requestID uuid.UUID) ([]models.AnswerHistoryEntry, error) {
	var out []models.AnswerHistoryEntry
	err := r.db.WithContext(ctx).
		Where("design_request_id = ? AND is_current = ?", requestID, true).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *designRequestRepository) AnswerHistory(ctx context.Context, requestID, questionID uuid.UUID) ([]models.AnswerHistoryEntry, error) {
	var out []models.AnswerHistoryEntry
	err := r.db.WithContext(ctx).
		Where("design_request_id = ? AND question_id = ?", requestID, questionID).
		Order("version ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *designRequestRepository) ApplyPaymentOutcome(ctx context.Context, outcome PaymentOutcome) error {
	alreadyPaid := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := outcome.Event
		event.DesignRequestID = outcome.RequestID
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": outcome.Status}
		if outcome.Status == models.StatusPaid {
			updates["paid_at"] = time.Now()
		}
		if outcome.AmountCents != nil {
			updates["amount_cents"] = *outcome.AmountCents
		}
		q := tx.Model(&models.DesignRequest{}).Where("id = ?", outcome.RequestID)
		if len(outcome.FromStatuses) > 0 {
			q = q.Where("status IN ?", outcome.FromStatuses)
		} else {
			q = q.Where("status <> ?", models.StatusPaid)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.DesignRequest{}).Where("id = ?", outcome.RequestID).Count(&count).Error; err != nil {
				return err
			}
			switch {
			case count == 0:
				return ErrNotFound
			case len(outcome.FromStatuses) > 0:
				return ErrConflict
			}
			// keep the event, leave the paid request and its discount alone
			alreadyPaid = true
			return nil
		}

		if outcome.DiscountCodeID != nil && outcome.Status == models.StatusPaid {
			ok, err := incrementUsage(tx, *outcome.DiscountCodeID)
			if err != nil {
				return err
			}
			if !ok {
				if outcome.RequireDiscountSlot {
					return ErrDiscountExhausted
				}
				// the payment already happened; the code is simply over-used
				r.log.Warn("Discount code usage cap reached at settlement", "discount_code_id", outcome.DiscountCodeID.String())
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}
	if alreadyPaid {
		return ErrAlreadyPaid
	}
	return nil
}

func (r *designRequestRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.DesignRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

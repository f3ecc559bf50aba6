package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/models"
	"gorm.io/gorm"
)

// EventRepository appends to and reads the design request event log.
// Events are never updated or deleted.
type EventRepository interface {
	Append(ctx context.Context, event *models.DesignRequestEvent) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.DesignRequestEvent, error)
	CountByType(ctx context.Context) (map[string]int64, error)
}

type eventRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepository(db *gorm.DB, baseLog *logger.Logger) EventRepository {
	return &eventRepository{db: db, log: baseLog.With("repo", "EventRepository")}
}

func (r *eventRepository) Append(ctx context.Context, event *models.DesignRequestEvent) error {
	if event.CreatedBy == "" {
		event.CreatedBy = "system"
	}
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *eventRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.DesignRequestEvent, error) {
	var out []models.DesignRequestEvent
	err := r.db.WithContext(ctx).
		Where("design_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepository) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EventType string
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&models.DesignRequestEvent{}).
		Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.EventType] = row.Count
	}
	return out, nil
}

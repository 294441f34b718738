package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/models"
)

// OutboxRepository defines persistence operations for the notification outbox.
type OutboxRepository interface {
	Create(ctx context.Context, entry *models.NotificationOutbox) error
	ListPending(ctx context.Context, limit int) ([]models.NotificationOutbox, error)
	MarkSent(ctx context.Context, id uint, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string) error
}

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository instantiates a GORM-backed repository.
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, entry *models.NotificationOutbox) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]models.NotificationOutbox, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []models.NotificationOutbox
	err := r.db.WithContext(ctx).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.OutboxStatusSent,
			"sent_at": sentAt,
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusFailed,
			"last_error": reason,
		}).Error
}

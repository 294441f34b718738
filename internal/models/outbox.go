package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationOutbox persists a notification-worthy event alongside the
// primary mutation. A background dispatcher delivers pending rows; delivery
// failure never affects the workflow that wrote the row.
type NotificationOutbox struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Topic     string            `gorm:"size:128;not null;index" json:"topic"`
	Recipient string            `gorm:"size:255;not null" json:"recipient"`
	Subject   string            `gorm:"size:255;not null" json:"subject"`
	Body      string            `gorm:"type:text" json:"body"`
	Payload   datatypes.JSONMap `gorm:"type:json" json:"payload"`
	Status    string            `gorm:"size:32;not null;default:pending;index" json:"status"`
	SentAt    *time.Time        `json:"sent_at"`
	LastError string            `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

const (
	// OutboxStatusPending awaits dispatch.
	OutboxStatusPending = "pending"
	// OutboxStatusSent was delivered to the mail provider.
	OutboxStatusSent = "sent"
	// OutboxStatusFailed could not be delivered; there is no retry.
	OutboxStatusFailed = "failed"
)

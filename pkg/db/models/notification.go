package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to accounts.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID              `gorm:"column:account_id;type:uuid;not null;index;uniqueIndex:ux_notifications_event_account"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	// EventID ties the row back to the outbox event that produced it so the
	// consumer can dedupe redeliveries. One event may notify several accounts,
	// so uniqueness is per event and recipient.
	EventID   *uuid.UUID `gorm:"column:event_id;type:uuid;uniqueIndex:ux_notifications_event_account"`
	ReadAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;default:now()"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceToken holds an account's FCM registration token. One row per account;
// re-registering replaces the token in place.
type DeviceToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex"`
	Token     string    `gorm:"type:text;not null"`
	Platform  *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

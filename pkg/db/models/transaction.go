package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// Transaction records one time-for-service exchange. Hours is locked in at
// open time and never rewritten; the amount credited to the provider on
// completion is always this value, whatever the listing says by then.
type Transaction struct {
	ID          uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID  uuid.UUID               `gorm:"column:provider_id;type:uuid;not null;index"`
	ReceiverID  uuid.UUID               `gorm:"column:receiver_id;type:uuid;not null;index"`
	ServiceID   uuid.UUID               `gorm:"column:service_id;type:uuid;not null;index:idx_transactions_service"`
	Hours       decimal.Decimal         `gorm:"column:hours;type:numeric(12,2);not null"`
	Status      enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt *time.Time              `gorm:"column:completed_at"`
}

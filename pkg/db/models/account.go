package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// Account is the ledger-bearing identity. EarnedHours and SpentHours are the
// only persisted balance fields; the time balance is always the difference of
// the two and is never stored, so it cannot drift.
type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	Name         string            `gorm:"column:name;not null"`
	Role         enums.AccountRole `gorm:"column:role;type:account_role;not null;default:'both'"`
	EarnedHours  decimal.Decimal   `gorm:"column:earned_hours;type:numeric(12,2);not null;default:0"`
	SpentHours   decimal.Decimal   `gorm:"column:spent_hours;type:numeric(12,2);not null;default:0"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TimeBalance is the derived spendable balance.
func (a Account) TimeBalance() decimal.Decimal {
	return a.EarnedHours.Sub(a.SpentHours)
}

package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
)

// ErrInsufficientBalance is returned when a delta would drive an account's
// time balance below zero. The guard lives in the UPDATE itself so no
// interleaved writer can sneak a balance negative between read and write.
var ErrInsufficientBalance = errors.New("insufficient time balance")

// Delta is a signed adjustment to the persisted balance columns.
type Delta struct {
	Earned decimal.Decimal
	Spent  decimal.Decimal
}

// Repository manages persistence for accounts and their balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ApplyDelta(ctx context.Context, id uuid.UUID, delta Delta) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an accounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyDelta is the only balance mutation path. It runs as a single
// conditional UPDATE: the resulting balance must stay non-negative or zero
// rows are touched. Because the increments are additive there is no lost
// update to race on; a guard failure means the balance genuinely cannot
// cover the delta.
func (r *repository) ApplyDelta(ctx context.Context, id uuid.UUID, delta Delta) error {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Where("earned_hours + ? - spent_hours - ? >= 0", delta.Earned, delta.Spent).
		Updates(map[string]any{
			"earned_hours": gorm.Expr("earned_hours + ?", delta.Earned),
			"spent_hours":  gorm.Expr("spent_hours + ?", delta.Spent),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Account{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

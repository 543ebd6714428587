package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/outbox"
	"github.com/timebankhq/timebank-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes account reads and the administrative balance correction.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
	AdjustBalance(ctx context.Context, input AdjustBalanceInput) (*Profile, error)
}

// Profile is the account view returned to callers.
type Profile struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Role        enums.AccountRole `json:"role"`
	EarnedHours decimal.Decimal   `json:"earned_hours"`
	SpentHours  decimal.Decimal   `json:"spent_hours"`
	TimeBalance decimal.Decimal   `json:"time_balance"`
}

// AdjustBalanceInput captures an admin-issued corrective credit or debit.
type AdjustBalanceInput struct {
	AccountID   uuid.UUID
	EarnedDelta decimal.Decimal
	SpentDelta  decimal.Decimal
	Reason      string
	ActorID     uuid.UUID
	ActorRole   string
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires the accounts service with its dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return FromModel(account), nil
}

func (s *service) AdjustBalance(ctx context.Context, input AdjustBalanceInput) (*Profile, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.EarnedDelta.IsZero() && input.SpentDelta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment requires a non-zero delta")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason required")
	}

	var adjusted *Profile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.ApplyDelta(ctx, input.AccountID, Delta{Earned: input.EarnedDelta, Spent: input.SpentDelta}); err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			case errors.Is(err, ErrInsufficientBalance):
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "adjustment would drive balance negative")
			default:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply balance delta")
			}
		}

		account, err := repo.FindByID(ctx, input.AccountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload account")
		}
		adjusted = FromModel(account)

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceAdjusted,
			AggregateType: enums.AggregateAccount,
			AggregateID:   input.AccountID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: input.ActorID, Role: input.ActorRole},
			Data: payloads.BalanceAdjustedEvent{
				AccountID:   input.AccountID,
				EarnedDelta: input.EarnedDelta,
				SpentDelta:  input.SpentDelta,
				Reason:      input.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

// FromModel maps a stored account to its caller-facing profile.
func FromModel(account *models.Account) *Profile {
	return &Profile{
		ID:          account.ID,
		Email:       account.Email,
		Name:        account.Name,
		Role:        account.Role,
		EarnedHours: account.EarnedHours,
		SpentHours:  account.SpentHours,
		TimeBalance: account.TimeBalance(),
	}
}

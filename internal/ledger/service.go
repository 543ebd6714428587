package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/internal/accounts"
	"github.com/timebankhq/timebank-backend/internal/catalog"
	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/logger"
	"github.com/timebankhq/timebank-backend/pkg/metrics"
	"github.com/timebankhq/timebank-backend/pkg/outbox"
	"github.com/timebankhq/timebank-backend/pkg/outbox/payloads"
	pkgpagination "github.com/timebankhq/timebank-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the ledger engine. Every mutation runs inside one database
// transaction: balance delta, transaction record write, listing status swap,
// and outbox emit commit or roll back together.
type Service interface {
	OpenTransaction(ctx context.Context, input OpenTransactionInput) (*TransactionView, error)
	ResolveTransaction(ctx context.Context, input ResolveTransactionInput) (*TransactionView, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionView, error)
	ListHistory(ctx context.Context, params HistoryParams) (*HistoryResult, error)
}

type service struct {
	repo     Repository
	accounts accounts.Repository
	catalog  catalog.Repository
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
}

// NewService wires the ledger engine with its collaborators.
func NewService(
	repo Repository,
	accountsRepo accounts.Repository,
	catalogRepo catalog.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	logg *logger.Logger,
	ledgerMetrics *metrics.LedgerMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		accounts: accountsRepo,
		catalog:  catalogRepo,
		tx:       tx,
		outbox:   outboxSvc,
		logg:     logg,
		metrics:  ledgerMetrics,
	}, nil
}

func (s *service) OpenTransaction(ctx context.Context, input OpenTransactionInput) (*TransactionView, error) {
	start := time.Now()
	view, err := s.openTransaction(ctx, input)
	s.observe(ctx, "open_transaction", start, err)
	return view, err
}

func (s *service) openTransaction(ctx context.Context, input OpenTransactionInput) (*TransactionView, error) {
	if input.ReceiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "receiver identity missing")
	}
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}

	var view *TransactionView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		accountsRepo := s.accounts.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		repo := s.repo.WithTx(tx)

		if _, err := accountsRepo.FindByID(ctx, input.ReceiverID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receiver account")
		}

		listing, err := catalogRepo.FindByID(ctx, input.ServiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service listing")
		}
		if listing.ProviderID == input.ReceiverID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot open a transaction against your own listing")
		}
		if listing.Status != enums.ListingStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "service is not available")
		}

		// Debit first: the conditional update is the non-negative-balance
		// enforcement point, so nothing is created when it refuses.
		if err := accountsRepo.ApplyDelta(ctx, input.ReceiverID, accounts.Delta{Spent: listing.HoursRequired}); err != nil {
			switch {
			case errors.Is(err, accounts.ErrInsufficientBalance):
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient time balance")
			case errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			default:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit receiver")
			}
		}

		record := &models.Transaction{
			ProviderID: listing.ProviderID,
			ReceiverID: input.ReceiverID,
			ServiceID:  listing.ID,
			Hours:      listing.HoursRequired,
			Status:     enums.TransactionStatusPending,
		}
		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction record")
		}

		receiverID := input.ReceiverID
		swapped, err := catalogRepo.SetStatus(ctx, listing.ID, enums.ListingStatusAvailable, enums.ListingStatusOngoing, &receiverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hold service listing")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeConflict, "service was taken concurrently")
		}

		view = toTransactionView(record)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionOpened,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   record.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: input.ReceiverID, Role: input.ActorRole},
			Data: payloads.TransactionOpenedEvent{
				TransactionID: record.ID,
				ServiceID:     listing.ID,
				ServiceName:   listing.Name,
				ProviderID:    listing.ProviderID,
				ReceiverID:    input.ReceiverID,
				Hours:         record.Hours,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) ResolveTransaction(ctx context.Context, input ResolveTransactionInput) (*TransactionView, error) {
	start := time.Now()
	view, err := s.resolveTransaction(ctx, input)
	s.observe(ctx, "resolve_transaction", start, err)
	return view, err
}

func (s *service) resolveTransaction(ctx context.Context, input ResolveTransactionInput) (*TransactionView, error) {
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	switch input.TargetStatus {
	case enums.TransactionStatusCompleted, enums.TransactionStatusDisputed, enums.TransactionStatusCancelled:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target status must be completed, disputed, or cancelled")
	}

	var view *TransactionView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		accountsRepo := s.accounts.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		repo := s.repo.WithTx(tx)

		record, err := repo.FindByID(ctx, input.TransactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}

		if err := authorizeResolve(record, input); err != nil {
			return err
		}

		// Idempotent resolve: asking for the state the record is already in
		// is a success, not an error.
		if record.Status == input.TargetStatus {
			view = toTransactionView(record)
			return nil
		}
		if record.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already resolved")
		}
		if input.TargetStatus == enums.TransactionStatusDisputed && record.Status != enums.TransactionStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only a pending transaction can be disputed")
		}

		// The status CAS decides the race: exactly one resolver moves the
		// record, everyone else sees a conflict and retries from a fresh read.
		swapped, err := repo.UpdateStatus(ctx, record.ID, record.Status, input.TargetStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction status")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeConflict, "transaction was resolved concurrently")
		}

		switch input.TargetStatus {
		case enums.TransactionStatusCompleted:
			if err := accountsRepo.ApplyDelta(ctx, record.ProviderID, accounts.Delta{Earned: record.Hours}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit provider")
			}
			if err := s.swapListing(ctx, catalogRepo, record.ServiceID, enums.ListingStatusOngoing, enums.ListingStatusCompleted); err != nil {
				return err
			}
		case enums.TransactionStatusCancelled:
			if err := accountsRepo.ApplyDelta(ctx, record.ReceiverID, accounts.Delta{Spent: record.Hours.Neg()}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund receiver")
			}
			if err := s.swapListing(ctx, catalogRepo, record.ServiceID, enums.ListingStatusOngoing, enums.ListingStatusAvailable); err != nil {
				return err
			}
		case enums.TransactionStatusDisputed:
			// Hours stay escrowed: receiver remains debited, provider is not
			// credited, and the listing stays ongoing.
		}

		record.Status = input.TargetStatus
		if input.TargetStatus == enums.TransactionStatusCompleted {
			now := time.Now().UTC()
			record.CompletedAt = &now
		}
		view = toTransactionView(record)

		eventType, err := enums.TransactionStatusEvent(input.TargetStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map transaction event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   record.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: input.ActorID, Role: input.ActorRole},
			Data: payloads.TransactionResolvedEvent{
				TransactionID: record.ID,
				ServiceID:     record.ServiceID,
				ProviderID:    record.ProviderID,
				ReceiverID:    record.ReceiverID,
				Hours:         record.Hours,
				Status:        input.TargetStatus,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) GetBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error) {
	start := time.Now()
	balance, err := s.getBalance(ctx, accountID)
	s.observe(ctx, "get_balance", start, err)
	return balance, err
}

func (s *service) getBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return &Balance{
		EarnedHours: account.EarnedHours,
		SpentHours:  account.SpentHours,
		TimeBalance: account.TimeBalance(),
	}, nil
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return toTransactionView(record), nil
}

func (s *service) ListHistory(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	var cursor *pkgpagination.Cursor
	if params.Cursor != "" {
		parsed, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, err := s.repo.ListByAccount(ctx, params.AccountID, pkgpagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]TransactionView, len(rows))
	for i := range rows {
		items[i] = *toTransactionView(&rows[i])
	}
	return &HistoryResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) swapListing(ctx context.Context, catalogRepo catalog.Repository, serviceID uuid.UUID, expected, next enums.ListingStatus) error {
	swapped, err := catalogRepo.SetStatus(ctx, serviceID, expected, next, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service listing status")
	}
	if !swapped {
		return pkgerrors.New(pkgerrors.CodeConflict, "service listing changed concurrently")
	}
	return nil
}

// authorizeResolve checks the actor is the right party for the requested
// outcome: the provider confirms completion, the receiver cancels, and
// either side may raise a dispute.
func authorizeResolve(record *models.Transaction, input ResolveTransactionInput) error {
	isProvider := input.ActorID == record.ProviderID
	isReceiver := input.ActorID == record.ReceiverID
	if !isProvider && !isReceiver {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this transaction")
	}

	switch input.TargetStatus {
	case enums.TransactionStatusCompleted:
		if !isProvider {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the provider can complete a transaction")
		}
	case enums.TransactionStatusCancelled:
		if !isReceiver {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the receiver can cancel a transaction")
		}
	}
	return nil
}

func (s *service) observe(ctx context.Context, operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err == nil {
		s.metrics.IncSuccess(operation)
		return
	}
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncFailure(operation, code)
	if s.logg != nil {
		s.logg.Error(ctx, operation+" failed", err)
	}
}

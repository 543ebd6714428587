package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgpagination "github.com/timebankhq/timebank-backend/pkg/pagination"
)

// TransactionView is the transaction representation returned to callers.
type TransactionView struct {
	ID          uuid.UUID               `json:"id"`
	ProviderID  uuid.UUID               `json:"provider_id"`
	ReceiverID  uuid.UUID               `json:"receiver_id"`
	ServiceID   uuid.UUID               `json:"service_id"`
	Hours       decimal.Decimal         `json:"hours"`
	Status      enums.TransactionStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

// Balance is the account balance triple. TimeBalance is always recomputed
// from the two stored columns, never read from storage.
type Balance struct {
	EarnedHours decimal.Decimal `json:"earned_hours"`
	SpentHours  decimal.Decimal `json:"spent_hours"`
	TimeBalance decimal.Decimal `json:"time_balance"`
}

// OpenTransactionInput identifies the receiver committing to a listing.
type OpenTransactionInput struct {
	ReceiverID uuid.UUID
	ServiceID  uuid.UUID
	ActorRole  string
}

// ResolveTransactionInput carries a resolve request.
type ResolveTransactionInput struct {
	TransactionID uuid.UUID
	TargetStatus  enums.TransactionStatus
	ActorID       uuid.UUID
	ActorRole     string
}

// HistoryParams filters an account's transaction history.
type HistoryParams struct {
	AccountID uuid.UUID
	pkgpagination.Params
}

// HistoryResult is one page of an account's transactions.
type HistoryResult struct {
	Items  []TransactionView `json:"items"`
	Cursor string            `json:"cursor"`
}

func toTransactionView(m *models.Transaction) *TransactionView {
	return &TransactionView{
		ID:          m.ID,
		ProviderID:  m.ProviderID,
		ReceiverID:  m.ReceiverID,
		ServiceID:   m.ServiceID,
		Hours:       m.Hours,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}

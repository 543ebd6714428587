package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// TransactionOpenedEvent signals that a receiver committed hours against a listing.
type TransactionOpenedEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	ServiceID     uuid.UUID       `json:"service_id"`
	ServiceName   string          `json:"service_name"`
	ProviderID    uuid.UUID       `json:"provider_id"`
	ReceiverID    uuid.UUID       `json:"receiver_id"`
	Hours         decimal.Decimal `json:"hours"`
}

// TransactionResolvedEvent is emitted for every terminal or disputed outcome.
type TransactionResolvedEvent struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	ServiceID     uuid.UUID               `json:"service_id"`
	ServiceName   string                  `json:"service_name"`
	ProviderID    uuid.UUID               `json:"provider_id"`
	ReceiverID    uuid.UUID               `json:"receiver_id"`
	Hours         decimal.Decimal         `json:"hours"`
	Status        enums.TransactionStatus `json:"status"`
}

// BalanceAdjustedEvent records an administrative correction to an account balance.
type BalanceAdjustedEvent struct {
	AccountID   uuid.UUID       `json:"account_id"`
	EarnedDelta decimal.Decimal `json:"earned_delta"`
	SpentDelta  decimal.Decimal `json:"spent_delta"`
	Reason      string          `json:"reason"`
}

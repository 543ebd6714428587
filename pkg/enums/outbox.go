package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateTransaction OutboxAggregateType = "transaction"
	AggregateAccount     OutboxAggregateType = "account"
	AggregateListing     OutboxAggregateType = "listing"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateAccount,
	AggregateListing,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventTransactionOpened    OutboxEventType = "transaction_opened"
	EventTransactionCompleted OutboxEventType = "transaction_completed"
	EventTransactionDisputed  OutboxEventType = "transaction_disputed"
	EventTransactionCancelled OutboxEventType = "transaction_cancelled"
	EventBalanceAdjusted      OutboxEventType = "balance_adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionOpened,
	EventTransactionCompleted,
	EventTransactionDisputed,
	EventTransactionCancelled,
	EventBalanceAdjusted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// TransactionStatusEvent maps a resolved transaction status to its event type.
func TransactionStatusEvent(status TransactionStatus) (OutboxEventType, error) {
	switch status {
	case TransactionStatusCompleted:
		return EventTransactionCompleted, nil
	case TransactionStatusDisputed:
		return EventTransactionDisputed, nil
	case TransactionStatusCancelled:
		return EventTransactionCancelled, nil
	default:
		return "", fmt.Errorf("no event type for transaction status %q", status)
	}
}

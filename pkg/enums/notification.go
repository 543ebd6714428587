package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeServiceRequested     NotificationType = "service_requested"
	NotificationTypeTransactionCompleted NotificationType = "transaction_completed"
	NotificationTypeTransactionDisputed  NotificationType = "transaction_disputed"
	NotificationTypeTransactionCancelled NotificationType = "transaction_cancelled"
	NotificationTypeBalanceAdjusted      NotificationType = "balance_adjusted"
	NotificationTypeSystemAnnouncement   NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeServiceRequested,
	NotificationTypeTransactionCompleted,
	NotificationTypeTransactionDisputed,
	NotificationTypeTransactionCancelled,
	NotificationTypeBalanceAdjusted,
	NotificationTypeSystemAnnouncement,
}

// IsValid reports whether the value matches the canonical notification_type enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	"github.com/timebankhq/timebank-backend/pkg/fcm"
	"github.com/timebankhq/timebank-backend/pkg/logger"
	"github.com/timebankhq/timebank-backend/pkg/outbox"
	"github.com/timebankhq/timebank-backend/pkg/outbox/idempotency"
	"github.com/timebankhq/timebank-backend/pkg/outbox/payloads"
)

const ledgerNotificationConsumer = "ledger-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type deviceLookup interface {
	FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.DeviceToken, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

// Consumer watches ledger events and fans them out as in-app notifications
// plus best-effort push delivery.
type Consumer struct {
	repo         repository
	devices      deviceLookup
	pusher       fcm.Sender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a ledger notification consumer. The pusher is optional;
// without one only in-app notifications are written.
func NewConsumer(
	repo repository,
	devices deviceLookup,
	pusher fcm.Sender,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if devices == nil {
		return nil, fmt.Errorf("device repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("ledger subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		devices:      devices,
		pusher:       pusher,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, ledgerNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	drafts, err := draftNotifications(enums.OutboxEventType(eventType), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, ledgerNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if len(drafts) == 0 {
		c.logg.Info(logCtx, "event type not handled")
		return processResult{ack: true}
	}

	for i := range drafts {
		id := eventID
		drafts[i].EventID = &id
		if err := c.repo.Create(ctx, &drafts[i]); err != nil {
			c.logg.Error(logCtx, "failed to store notification", err)
			_ = c.idempotency.Delete(ctx, ledgerNotificationConsumer, eventID)
			return processResult{nack: true}
		}
		// Push delivery is best effort. The committed ledger outcome and the
		// stored notification never depend on FCM being reachable.
		c.push(logCtx, drafts[i])
	}

	return processResult{ack: true}
}

func (c *Consumer) push(ctx context.Context, notification models.Notification) {
	if c.pusher == nil {
		return
	}
	device, err := c.devices.FindByAccount(ctx, notification.AccountID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Error(ctx, "device token lookup failed", err)
		}
		return
	}

	err = c.pusher.SendPush(ctx, fcm.Push{
		Token: device.Token,
		Title: notification.Title,
		Body:  notification.Message,
		Data: map[string]string{
			"type": string(notification.Type),
		},
	})
	switch {
	case errors.Is(err, fcm.ErrUnregisteredToken):
		if deleteErr := c.devices.DeleteByAccount(ctx, notification.AccountID); deleteErr != nil {
			c.logg.Error(ctx, "failed to prune stale device token", deleteErr)
		}
	case err != nil:
		c.logg.Error(ctx, "push delivery failed", err)
	}
}

func draftNotifications(eventType enums.OutboxEventType, data json.RawMessage) ([]models.Notification, error) {
	switch eventType {
	case enums.EventTransactionOpened:
		var payload payloads.TransactionOpenedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []models.Notification{{
			AccountID: payload.ProviderID,
			Type:      enums.NotificationTypeServiceRequested,
			Title:     "New service request",
			Message:   fmt.Sprintf("%s was requested for %s hours.", payload.ServiceName, payload.Hours),
		}}, nil

	case enums.EventTransactionCompleted:
		payload, err := decodeResolved(data)
		if err != nil {
			return nil, err
		}
		return []models.Notification{
			{
				AccountID: payload.ProviderID,
				Type:      enums.NotificationTypeTransactionCompleted,
				Title:     "Service completed",
				Message:   fmt.Sprintf("You earned %s hours for a completed service.", payload.Hours),
			},
			{
				AccountID: payload.ReceiverID,
				Type:      enums.NotificationTypeTransactionCompleted,
				Title:     "Service completed",
				Message:   fmt.Sprintf("Your service request was completed for %s hours.", payload.Hours),
			},
		}, nil

	case enums.EventTransactionDisputed:
		payload, err := decodeResolved(data)
		if err != nil {
			return nil, err
		}
		message := fmt.Sprintf("A transaction for %s hours is under dispute. The hours stay held until it settles.", payload.Hours)
		return []models.Notification{
			{AccountID: payload.ProviderID, Type: enums.NotificationTypeTransactionDisputed, Title: "Transaction disputed", Message: message},
			{AccountID: payload.ReceiverID, Type: enums.NotificationTypeTransactionDisputed, Title: "Transaction disputed", Message: message},
		}, nil

	case enums.EventTransactionCancelled:
		payload, err := decodeResolved(data)
		if err != nil {
			return nil, err
		}
		return []models.Notification{{
			AccountID: payload.ProviderID,
			Type:      enums.NotificationTypeTransactionCancelled,
			Title:     "Request cancelled",
			Message:   fmt.Sprintf("A request for your service was cancelled. %s hours were returned to the requester.", payload.Hours),
		}}, nil

	case enums.EventBalanceAdjusted:
		var payload payloads.BalanceAdjustedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []models.Notification{{
			AccountID: payload.AccountID,
			Type:      enums.NotificationTypeBalanceAdjusted,
			Title:     "Balance adjusted",
			Message:   fmt.Sprintf("Your time balance was adjusted: %s earned, %s spent. Reason: %s.", payload.EarnedDelta, payload.SpentDelta, payload.Reason),
		}}, nil

	default:
		return nil, nil
	}
}

func decodeResolved(data json.RawMessage) (payloads.TransactionResolvedEvent, error) {
	var payload payloads.TransactionResolvedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return payloads.TransactionResolvedEvent{}, err
	}
	return payload, nil
}

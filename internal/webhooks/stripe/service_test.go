package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/internal/subscriptions"
	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
)

type fakeSubscriptionsRepo struct {
	byStripe map[string]*models.Subscription
	created  []*models.Subscription
	updated  []*models.Subscription
}

func newFakeSubscriptionsRepo() *fakeSubscriptionsRepo {
	return &fakeSubscriptionsRepo{byStripe: map[string]*models.Subscription{}}
}

func (f *fakeSubscriptionsRepo) WithTx(tx *gorm.DB) subscriptions.Repository { return f }

func (f *fakeSubscriptionsRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	f.created = append(f.created, subscription)
	f.byStripe[subscription.StripeSubscriptionID] = subscription
	return nil
}

func (f *fakeSubscriptionsRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	f.updated = append(f.updated, subscription)
	return nil
}

func (f *fakeSubscriptionsRepo) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}


func (f *fakeSubscriptionsRepo) ListForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Subscription, error) {
	return nil, nil
}

func (f *fakeSubscriptionsRepo) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	return f.byStripe[stripeSubscriptionID], nil
}

type fakeStripeClient struct {
	fetched []string
	sub     *stripe.Subscription
}

func (f *fakeStripeClient) Create(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, nil
}

func (f *fakeStripeClient) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	f.fetched = append(f.fetched, id)
	return f.sub, nil
}

func (f *fakeStripeClient) Cancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	return nil, nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newWebhookService(t *testing.T, repo subscriptions.Repository, client subscriptions.StripeSubscriptionClient) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		SubscriptionsRepo: repo,
		StripeClient:      client,
		TransactionRunner: &fakeTxRunner{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func subscriptionEventPayload(t *testing.T, id string, accountID uuid.UUID, status stripe.SubscriptionStatus) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(&stripe.Subscription{
		ID:     id,
		Status: status,
		Metadata: map[string]string{
			"account_id": accountID.String(),
		},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					Price:              &stripe.Price{ID: "price_basic"},
					CurrentPeriodStart: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Unix(),
					CurrentPeriodEnd:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC).Unix(),
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestHandleSubscriptionCreatedStoresRow(t *testing.T) {
	repo := newFakeSubscriptionsRepo()
	svc := newWebhookService(t, repo, &fakeStripeClient{})

	accountID := uuid.New()
	event := &stripe.Event{
		Type: stripe.EventTypeCustomerSubscriptionCreated,
		Data: &stripe.EventData{Raw: subscriptionEventPayload(t, "sub_new", accountID, "active")},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one row created, got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.AccountID != accountID || row.StripeSubscriptionID != "sub_new" {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Status != enums.SubscriptionStatusActive {
		t.Fatalf("unexpected status %s", row.Status)
	}
	if row.PriceID == nil || *row.PriceID != "price_basic" {
		t.Fatal("expected price mapped from subscription items")
	}
}

func TestHandleSubscriptionDeletedUpdatesRow(t *testing.T) {
	repo := newFakeSubscriptionsRepo()
	svc := newWebhookService(t, repo, &fakeStripeClient{})

	accountID := uuid.New()
	repo.byStripe["sub_live"] = &models.Subscription{
		ID:                   uuid.New(),
		AccountID:            accountID,
		StripeSubscriptionID: "sub_live",
		Status:               enums.SubscriptionStatusActive,
	}

	event := &stripe.Event{
		Type: stripe.EventTypeCustomerSubscriptionDeleted,
		Data: &stripe.EventData{Raw: subscriptionEventPayload(t, "sub_live", accountID, "canceled")},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("expected no new row for a known subscription")
	}
	if len(repo.updated) != 1 || repo.updated[0].Status != enums.SubscriptionStatusCanceled {
		t.Fatal("expected the stored row marked canceled")
	}
}

func TestHandleInvoicePaymentFailedFetchesSubscription(t *testing.T) {
	repo := newFakeSubscriptionsRepo()
	accountID := uuid.New()
	repo.byStripe["sub_live"] = &models.Subscription{
		ID:                   uuid.New(),
		AccountID:            accountID,
		StripeSubscriptionID: "sub_live",
		Status:               enums.SubscriptionStatusActive,
	}
	client := &fakeStripeClient{
		sub: &stripe.Subscription{ID: "sub_live", Status: stripe.SubscriptionStatusPastDue},
	}
	svc := newWebhookService(t, repo, client)

	event := &stripe.Event{
		Type: stripe.EventTypeInvoicePaymentFailed,
		Data: &stripe.EventData{Object: map[string]any{"subscription": "sub_live"}},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(client.fetched) != 1 || client.fetched[0] != "sub_live" {
		t.Fatal("expected the subscription fetched from stripe")
	}
	if len(repo.updated) != 1 || repo.updated[0].Status != enums.SubscriptionStatusPastDue {
		t.Fatal("expected the stored row marked past due")
	}
}

func TestHandleUnknownEventIsNoOp(t *testing.T) {
	repo := newFakeSubscriptionsRepo()
	svc := newWebhookService(t, repo, &fakeStripeClient{})

	event := &stripe.Event{
		Type: stripe.EventTypeChargeRefunded,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.created) != 0 || len(repo.updated) != 0 {
		t.Fatal("expected no writes for an unhandled event")
	}
}

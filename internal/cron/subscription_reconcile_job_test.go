package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/internal/subscriptions"
	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	"github.com/timebankhq/timebank-backend/pkg/logger"
)

func TestSubscriptionReconcileJobSyncsStripeStatus(t *testing.T) {
	accountID := uuid.New()
	stored := models.Subscription{
		ID:                   uuid.New(),
		AccountID:            accountID,
		StripeSubscriptionID: "sub_123",
		Status:               enums.SubscriptionStatusActive,
		CurrentPeriodEnd:     time.Now().Add(24 * time.Hour),
	}
	repo := &fakeReconcileRepo{rows: []models.Subscription{stored}}
	client := &fakeReconcileStripeClient{sub: &stripe.Subscription{
		ID:     "sub_123",
		Status: stripe.SubscriptionStatusPastDue,
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{
			Price:              &stripe.Price{ID: "price_basic"},
			CurrentPeriodStart: time.Now().Unix(),
			CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		}}},
	}}
	job := newReconcileJob(t, repo, client)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(client.fetched) != 1 || client.fetched[0] != "sub_123" {
		t.Fatalf("expected one stripe fetch for sub_123, got %v", client.fetched)
	}
	if len(repo.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updated))
	}
	if repo.updated[0].Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due, got %s", repo.updated[0].Status)
	}
}

func TestSubscriptionReconcileJobSkipsMissingStripeID(t *testing.T) {
	repo := &fakeReconcileRepo{rows: []models.Subscription{{ID: uuid.New(), AccountID: uuid.New()}}}
	client := &fakeReconcileStripeClient{}
	job := newReconcileJob(t, repo, client)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.fetched) != 0 {
		t.Fatalf("expected no stripe calls, got %v", client.fetched)
	}
}

func TestSubscriptionReconcileJobCollectsFetchErrors(t *testing.T) {
	repo := &fakeReconcileRepo{rows: []models.Subscription{{
		ID:                   uuid.New(),
		AccountID:            uuid.New(),
		StripeSubscriptionID: "sub_err",
	}}}
	client := &fakeReconcileStripeClient{err: errors.New("stripe down")}
	job := newReconcileJob(t, repo, client)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newReconcileJob(t *testing.T, repo *fakeReconcileRepo, client *fakeReconcileStripeClient) Job {
	t.Helper()
	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		DB:           notificationFakeTxRunner{},
		Repo:         repo,
		StripeClient: client,
	})
	if err != nil {
		t.Fatalf("NewSubscriptionReconcileJob: %v", err)
	}
	return job
}

type fakeReconcileRepo struct {
	rows    []models.Subscription
	updated []*models.Subscription
}

func (f *fakeReconcileRepo) WithTx(tx *gorm.DB) subscriptions.Repository { return f }

func (f *fakeReconcileRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	return nil
}

func (f *fakeReconcileRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	f.updated = append(f.updated, subscription)
	return nil
}

func (f *fakeReconcileRepo) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (f *fakeReconcileRepo) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	for i := range f.rows {
		if f.rows[i].StripeSubscriptionID == stripeSubscriptionID {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (f *fakeReconcileRepo) ListForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Subscription, error) {
	return f.rows, nil
}

type fakeReconcileStripeClient struct {
	fetched []string
	sub     *stripe.Subscription
	err     error
}

func (f *fakeReconcileStripeClient) Create(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReconcileStripeClient) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	f.fetched = append(f.fetched, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func (f *fakeReconcileStripeClient) Cancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	return nil, errors.New("not implemented")
}

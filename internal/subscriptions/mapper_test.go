package subscriptions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/timebankhq/timebank-backend/pkg/enums"
)

func stripeSubscriptionFixture(id string, status stripe.SubscriptionStatus) *stripe.Subscription {
	return &stripe.Subscription{
		ID:     id,
		Status: status,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					Price:              &stripe.Price{ID: "price_basic"},
					CurrentPeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
					CurrentPeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Unix(),
				},
			},
		},
		Metadata: map[string]string{"account_id": uuid.NewString()},
	}
}

func TestBuildSubscriptionFromStripe(t *testing.T) {
	accountID := uuid.New()
	sub, err := BuildSubscriptionFromStripe(stripeSubscriptionFixture("sub_123", stripe.SubscriptionStatusActive), accountID, "price_basic")
	if err != nil {
		t.Fatalf("build subscription: %v", err)
	}

	if sub.AccountID != accountID {
		t.Fatal("expected account id carried over")
	}
	if sub.StripeSubscriptionID != "sub_123" {
		t.Fatalf("unexpected stripe id %q", sub.StripeSubscriptionID)
	}
	if sub.Status != enums.SubscriptionStatusActive {
		t.Fatalf("unexpected status %s", sub.Status)
	}
	if sub.PriceID == nil || *sub.PriceID != "price_basic" {
		t.Fatal("expected price id stored")
	}
	if sub.CurrentPeriodStart == nil || sub.CurrentPeriodEnd.IsZero() {
		t.Fatal("expected billing period mapped from the first item")
	}
}

func TestUpdateSubscriptionFromStripeMarksCancellation(t *testing.T) {
	accountID := uuid.New()
	stored, err := BuildSubscriptionFromStripe(stripeSubscriptionFixture("sub_123", stripe.SubscriptionStatusActive), accountID, "price_basic")
	if err != nil {
		t.Fatalf("build subscription: %v", err)
	}

	canceled := stripeSubscriptionFixture("sub_123", stripe.SubscriptionStatusCanceled)
	canceled.CanceledAt = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC).Unix()
	if err := UpdateSubscriptionFromStripe(stored, canceled, nil); err != nil {
		t.Fatalf("update subscription: %v", err)
	}

	if stored.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled status, got %s", stored.Status)
	}
	if stored.CanceledAt == nil {
		t.Fatal("expected canceled_at stamped")
	}
}

func TestAccountIDFromMetadata(t *testing.T) {
	want := uuid.New()
	got, err := AccountIDFromMetadata(map[string]string{"account_id": want.String()})
	if err != nil {
		t.Fatalf("account id from metadata: %v", err)
	}
	if got != want {
		t.Fatal("expected parsed account id")
	}

	if _, err := AccountIDFromMetadata(map[string]string{}); err == nil {
		t.Fatal("expected missing account_id rejected")
	}
	if _, err := AccountIDFromMetadata(map[string]string{"account_id": "nope"}); err == nil {
		t.Fatal("expected malformed account_id rejected")
	}
}

func TestIsActiveStatus(t *testing.T) {
	active := []enums.SubscriptionStatus{enums.SubscriptionStatusActive, enums.SubscriptionStatusTrialing}
	for _, status := range active {
		if !IsActiveStatus(status) {
			t.Fatalf("expected %s active", status)
		}
	}
	inactive := []enums.SubscriptionStatus{
		enums.SubscriptionStatusCanceled,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusUnpaid,
		enums.SubscriptionStatusIncomplete,
	}
	for _, status := range inactive {
		if IsActiveStatus(status) {
			t.Fatalf("expected %s inactive", status)
		}
	}
}

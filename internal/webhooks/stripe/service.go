package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/internal/subscriptions"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the stripe webhook service dependencies.
type ServiceParams struct {
	SubscriptionsRepo subscriptions.Repository
	StripeClient      subscriptions.StripeSubscriptionClient
	TransactionRunner txRunner
}

// Service applies Stripe subscription lifecycle events to stored state.
type Service struct {
	repo     subscriptions.Repository
	stripe   subscriptions.StripeSubscriptionClient
	txRunner txRunner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.SubscriptionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		repo:     params.SubscriptionsRepo,
		stripe:   params.StripeClient,
		txRunner: params.TransactionRunner,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &stripeSub)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		subscriptionID := event.GetObjectValue("subscription")
		if subscriptionID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
		}
		stripeSub, err := s.stripe.Get(ctx, subscriptionID, &stripe.SubscriptionParams{})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
		}
		return s.syncSubscription(ctx, stripeSub)
	default:
		return nil
	}
}

func (s *Service) syncSubscription(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.FindByStripeID(ctx, stripeSub.ID)
		if err != nil {
			return err
		}

		priceID := subscriptions.DeterminePriceID(stripeSub)

		if stored == nil {
			accountID, metadataErr := subscriptions.AccountIDFromMetadata(stripeSub.Metadata)
			if metadataErr != nil {
				return metadataErr
			}
			built, buildErr := subscriptions.BuildSubscriptionFromStripe(stripeSub, accountID, priceID)
			if buildErr != nil {
				return buildErr
			}
			return repo.Create(ctx, built)
		}

		var pricePtr *string
		if priceID != "" {
			pricePtr = &priceID
		}
		if err := subscriptions.UpdateSubscriptionFromStripe(stored, stripeSub, pricePtr); err != nil {
			return err
		}
		return repo.Update(ctx, stored)
	})
}

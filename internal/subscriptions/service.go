package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the premium membership lifecycle surface.
type Service interface {
	Subscribe(ctx context.Context, accountID uuid.UUID, input SubscribeInput) (*models.Subscription, bool, error)
	Cancel(ctx context.Context, accountID uuid.UUID) error
	GetActive(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	StripeClient      StripeSubscriptionClient
	DefaultPriceID    string
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// SubscribeInput captures the data required to start a membership.
type SubscribeInput struct {
	StripeCustomerID      string
	StripePaymentMethodID string
	PriceID               string
}

type service struct {
	repo     Repository
	stripe   StripeSubscriptionClient
	priceID  string
	txRunner txRunner
	logg     *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if strings.TrimSpace(params.DefaultPriceID) == "" {
		return nil, fmt.Errorf("default price id required")
	}
	return &service{
		repo:     params.Repo,
		stripe:   params.StripeClient,
		priceID:  strings.TrimSpace(params.DefaultPriceID),
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// Subscribe either returns the existing active membership or starts a new one.
func (s *service) Subscribe(ctx context.Context, accountID uuid.UUID, input SubscribeInput) (*models.Subscription, bool, error) {
	if accountID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	customerID := strings.TrimSpace(input.StripeCustomerID)
	if customerID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "stripe_customer_id is required")
	}
	paymentMethodID := strings.TrimSpace(input.StripePaymentMethodID)
	if paymentMethodID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "stripe_payment_method_id is required")
	}
	priceID := strings.TrimSpace(input.PriceID)
	if priceID == "" {
		priceID = s.priceID
	}

	if existing, err := s.findActive(ctx, accountID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	stripeSub, err := s.stripe.Create(ctx, &stripe.SubscriptionParams{
		Customer:             stripe.String(customerID),
		DefaultPaymentMethod: stripe.String(paymentMethodID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		Metadata: map[string]string{
			"account_id": accountID.String(),
		},
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe subscription")
	}

	var (
		created  *models.Subscription
		existing *models.Subscription
	)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		active, err := s.findActiveIn(ctx, repo, accountID)
		if err != nil {
			return err
		}
		if active != nil {
			existing = active
			return nil
		}

		built, err := BuildSubscriptionFromStripe(stripeSub, accountID, priceID)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, built); err != nil {
			return err
		}
		created = built
		return nil
	})
	if err != nil {
		if cancelErr := s.cancelStripe(ctx, stripeSub.ID); cancelErr != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, cancelErr, "cancel stripe subscription after db error")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}

	// Another request won the race inside the tx; the Stripe subscription we
	// just created is surplus.
	if existing != nil {
		if cancelErr := s.cancelStripe(ctx, stripeSub.ID); cancelErr != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, cancelErr, "cancel duplicate stripe subscription")
		}
		if s.logg != nil {
			s.logg.Info(ctx, "duplicate stripe subscription cancelled after race")
		}
		return existing, false, nil
	}

	return created, true, nil
}

// Cancel terminates the active membership if one exists.
func (s *service) Cancel(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	active, err := s.findActive(ctx, accountID)
	if err != nil {
		return err
	}
	if active == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}

	stripeSub, err := s.stripe.Cancel(ctx, active.StripeSubscriptionID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stripe subscription")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.FindByStripeID(ctx, active.StripeSubscriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
		}
		if stored == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		if err := UpdateSubscriptionFromStripe(stored, stripeSub, stored.PriceID); err != nil {
			return err
		}
		if err := repo.Update(ctx, stored); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cancellation")
		}
		return nil
	})
}

// GetActive returns the current active membership if one exists.
func (s *service) GetActive(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	return s.findActive(ctx, accountID)
}

func (s *service) findActive(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return s.findActiveIn(ctx, s.repo, accountID)
}

func (s *service) findActiveIn(ctx context.Context, repo Repository, accountID uuid.UUID) (*models.Subscription, error) {
	sub, err := repo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if sub == nil || !IsActiveStatus(sub.Status) {
		return nil, nil
	}
	return sub, nil
}

func (s *service) cancelStripe(ctx context.Context, id string) error {
	_, err := s.stripe.Cancel(ctx, id, &stripe.SubscriptionCancelParams{})
	return err
}

package controllers

import (
	"net/http"

	"github.com/timebankhq/timebank-backend/api/responses"
	"github.com/timebankhq/timebank-backend/api/validators"
	subscriptionsvc "github.com/timebankhq/timebank-backend/internal/subscriptions"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/logger"
)

type subscribeRequest struct {
	StripeCustomerID      string `json:"stripe_customer_id" validate:"required"`
	StripePaymentMethodID string `json:"stripe_payment_method_id" validate:"required"`
	PriceID               string `json:"price_id,omitempty"`
}

// SubscriptionCreate starts a premium membership for the authenticated account.
func SubscriptionCreate(svc subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body subscribeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, created, err := svc.Subscribe(r.Context(), accountID, subscriptionsvc.SubscribeInput{
			StripeCustomerID:      body.StripeCustomerID,
			StripePaymentMethodID: body.StripePaymentMethodID,
			PriceID:               body.PriceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, sub)
	}
}

// SubscriptionCancel terminates the account's active membership.
func SubscriptionCancel(svc subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "canceled"})
	}
}

// SubscriptionFetch returns the account's active membership, if any.
func SubscriptionFetch(svc subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetActive(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

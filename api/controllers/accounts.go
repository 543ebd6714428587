package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/api/middleware"
	"github.com/timebankhq/timebank-backend/api/responses"
	"github.com/timebankhq/timebank-backend/api/validators"
	"github.com/timebankhq/timebank-backend/internal/accounts"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/logger"
)

// AccountProfile returns the authenticated account.
func AccountProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type adjustBalanceRequest struct {
	EarnedDelta decimal.Decimal `json:"earned_delta"`
	SpentDelta  decimal.Decimal `json:"spent_delta"`
	Reason      string          `json:"reason" validate:"required,min=3,max=255"`
}

// AdminAdjustBalance applies a corrective credit or debit to an account.
func AdminAdjustBalance(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		actorID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := parseURLUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustBalanceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.AdjustBalance(r.Context(), accounts.AdjustBalanceInput{
			AccountID:   accountID,
			EarnedDelta: body.EarnedDelta,
			SpentDelta:  body.SpentDelta,
			Reason:      body.Reason,
			ActorID:     actorID,
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

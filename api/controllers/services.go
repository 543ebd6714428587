package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/api/responses"
	"github.com/timebankhq/timebank-backend/api/validators"
	"github.com/timebankhq/timebank-backend/internal/catalog"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/logger"
	"github.com/timebankhq/timebank-backend/pkg/pagination"
)

type createListingRequest struct {
	Name          string          `json:"name" validate:"required,min=3,max=120"`
	Description   string          `json:"description" validate:"required"`
	ServiceType   string          `json:"service_type" validate:"required"`
	SubCategory   *string         `json:"sub_category,omitempty"`
	Province      string          `json:"province" validate:"required"`
	Area          string          `json:"area" validate:"required"`
	HoursRequired decimal.Decimal `json:"hours_required"`
}

// CreateService publishes a new service listing for the authenticated provider.
func CreateService(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		providerID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.CreateListing(r.Context(), catalog.CreateListingInput{
			ProviderID:    providerID,
			Name:          body.Name,
			Description:   body.Description,
			ServiceType:   body.ServiceType,
			SubCategory:   body.SubCategory,
			Province:      body.Province,
			Area:          body.Area,
			HoursRequired: body.HoursRequired,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// GetService returns a single listing by id.
func GetService(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := parseURLUUID(r, "serviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.GetListing(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// ListServices returns a filtered page of the catalog.
func ListServices(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		params := catalog.ListParams{
			ServiceType: strings.TrimSpace(query.Get("service_type")),
			Province:    strings.TrimSpace(query.Get("province")),
			Area:        strings.TrimSpace(query.Get("area")),
			Status:      strings.TrimSpace(query.Get("status")),
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(query.Get("cursor"))

		if provider := strings.TrimSpace(query.Get("provider_id")); provider != "" {
			providerID, err := uuid.Parse(provider)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider_id"))
				return
			}
			params.ProviderID = providerID
		}

		result, err := svc.ListListings(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

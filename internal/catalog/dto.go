package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgpagination "github.com/timebankhq/timebank-backend/pkg/pagination"
)

// CreateListingInput carries the fields a provider submits for a new listing.
type CreateListingInput struct {
	ProviderID    uuid.UUID
	Name          string
	Description   string
	ServiceType   string
	SubCategory   *string
	Province      string
	Area          string
	HoursRequired decimal.Decimal
}

// ListParams filters a catalog listing query.
type ListParams struct {
	ServiceType string
	Province    string
	Area        string
	Status      string
	ProviderID  uuid.UUID
	pkgpagination.Params
}

// ListResult is one page of listings with a continuation cursor.
type ListResult struct {
	Items  []ListingView `json:"items"`
	Cursor string        `json:"cursor"`
}

// ListingView is the catalog representation returned to callers.
type ListingView struct {
	ID            uuid.UUID           `json:"id"`
	ProviderID    uuid.UUID           `json:"provider_id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	ServiceType   string              `json:"service_type"`
	SubCategory   *string             `json:"sub_category,omitempty"`
	Province      string              `json:"province"`
	Area          string              `json:"area"`
	HoursRequired decimal.Decimal     `json:"hours_required"`
	Status        enums.ListingStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ListQuery is the repository-level filter set for listing pages.
type ListQuery struct {
	ServiceType string
	Province    string
	Area        string
	Status      string
	ProviderID  uuid.UUID
	Limit       int
	Cursor      *pkgpagination.Cursor
}

func toListingView(m models.ServiceListing) ListingView {
	return ListingView{
		ID:            m.ID,
		ProviderID:    m.ProviderID,
		Name:          m.Name,
		Description:   m.Description,
		ServiceType:   m.ServiceType,
		SubCategory:   m.SubCategory,
		Province:      m.Province,
		Area:          m.Area,
		HoursRequired: m.HoursRequired,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

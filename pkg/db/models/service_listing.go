package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// ServiceListing is a provider's offered service. HoursRequired is the price
// quote copied into a transaction at open time; later edits to the listing do
// not touch open transactions.
type ServiceListing struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID    uuid.UUID           `gorm:"column:provider_id;type:uuid;not null;index"`
	Name          string              `gorm:"type:text;not null"`
	Description   string              `gorm:"type:text;not null"`
	ServiceType   string              `gorm:"column:service_type;type:text;not null;index"`
	SubCategory   *string             `gorm:"column:sub_category;type:text"`
	Province      string              `gorm:"type:text;not null;index:idx_service_listings_region"`
	Area          string              `gorm:"type:text;not null;index:idx_service_listings_region"`
	HoursRequired decimal.Decimal     `gorm:"column:hours_required;type:numeric(12,2);not null"`
	Status        enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'available'"`
	// RequestedBy marks the receiver holding the listing while a transaction
	// is open against it; cleared when the listing returns to available.
	RequestedBy *uuid.UUID `gorm:"column:requested_by;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package enums

import "fmt"

// ListingStatus maps to the listing_status enum in Postgres.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusOngoing   ListingStatus = "ongoing"
	ListingStatusCompleted ListingStatus = "completed"
)

var validListingStatuses = []ListingStatus{
	ListingStatusAvailable,
	ListingStatusOngoing,
	ListingStatusCompleted,
}

// IsValid reports whether the value matches the canonical listing_status enum.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}

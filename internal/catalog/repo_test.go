package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS service_listings (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  service_type TEXT NOT NULL,
  sub_category TEXT,
  province TEXT NOT NULL,
  area TEXT NOT NULL,
  hours_required NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  requested_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedListing(t *testing.T, db *gorm.DB, status enums.ListingStatus) *models.ServiceListing {
	t.Helper()
	listing := &models.ServiceListing{
		ID:            uuid.New(),
		ProviderID:    uuid.New(),
		Name:          "garden help",
		Description:   "weeding and watering",
		ServiceType:   "gardening",
		Province:      "gauteng",
		Area:          "pretoria",
		HoursRequired: decimal.RequireFromString("2"),
		Status:        status,
	}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func TestSetStatusCompareAndSwap(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := seedListing(t, db, enums.ListingStatusAvailable)
	receiver := uuid.New()

	swapped, err := repo.SetStatus(ctx, listing.ID, enums.ListingStatusAvailable, enums.ListingStatusOngoing, &receiver)
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if !swapped {
		t.Fatal("expected swap to succeed")
	}

	// Second CAS against the old expected state must lose.
	swapped, err = repo.SetStatus(ctx, listing.ID, enums.ListingStatusAvailable, enums.ListingStatusOngoing, &receiver)
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if swapped {
		t.Fatal("expected stale swap to fail")
	}

	reloaded, err := repo.FindByID(ctx, listing.ID)
	if err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if reloaded.Status != enums.ListingStatusOngoing {
		t.Fatalf("expected ongoing got %s", reloaded.Status)
	}
	if reloaded.RequestedBy == nil || *reloaded.RequestedBy != receiver {
		t.Fatalf("expected requested_by %s got %v", receiver, reloaded.RequestedBy)
	}
}

func TestSetStatusBackToAvailableClearsHolder(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := seedListing(t, db, enums.ListingStatusAvailable)
	receiver := uuid.New()

	if _, err := repo.SetStatus(ctx, listing.ID, enums.ListingStatusAvailable, enums.ListingStatusOngoing, &receiver); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	swapped, err := repo.SetStatus(ctx, listing.ID, enums.ListingStatusOngoing, enums.ListingStatusAvailable, nil)
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if !swapped {
		t.Fatal("expected revert to succeed")
	}

	reloaded, err := repo.FindByID(ctx, listing.ID)
	if err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if reloaded.Status != enums.ListingStatusAvailable {
		t.Fatalf("expected available got %s", reloaded.Status)
	}
	if reloaded.RequestedBy != nil {
		t.Fatalf("expected requested_by cleared got %v", reloaded.RequestedBy)
	}
}

func TestListFilters(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	match := seedListing(t, db, enums.ListingStatusAvailable)
	other := seedListing(t, db, enums.ListingStatusAvailable)
	if err := db.Model(&models.ServiceListing{}).
		Where("id = ?", other.ID).
		Updates(map[string]any{"province": "western cape", "area": "cape town"}).Error; err != nil {
		t.Fatalf("update other listing: %v", err)
	}

	rows, err := repo.List(ctx, ListQuery{Province: "gauteng", Area: "pretoria", Limit: 10})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != match.ID {
		t.Fatalf("expected only matching listing, got %d rows", len(rows))
	}
}

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgpagination "github.com/timebankhq/timebank-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  receiver_id TEXT NOT NULL,
  service_id TEXT NOT NULL,
  hours NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME,
  completed_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedTransaction(t *testing.T, db *gorm.DB, providerID, receiverID uuid.UUID, status enums.TransactionStatus, createdAt time.Time) *models.Transaction {
	t.Helper()
	record := &models.Transaction{
		ID:         uuid.New(),
		ProviderID: providerID,
		ReceiverID: receiverID,
		ServiceID:  uuid.New(),
		Hours:      decimal.RequireFromString("2.5"),
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return record
}

func TestUpdateStatusCompareAndSwap(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	record := seedTransaction(t, db, uuid.New(), uuid.New(), enums.TransactionStatusPending, time.Now().UTC())

	swapped, err := repo.UpdateStatus(ctx, record.ID, enums.TransactionStatusPending, enums.TransactionStatusCompleted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !swapped {
		t.Fatal("expected swap from pending to succeed")
	}

	// The same precondition no longer holds, a second swap must refuse.
	swapped, err = repo.UpdateStatus(ctx, record.ID, enums.TransactionStatusPending, enums.TransactionStatusCancelled)
	if err != nil {
		t.Fatalf("second update status: %v", err)
	}
	if swapped {
		t.Fatal("expected stale swap to be refused")
	}

	var stored models.Transaction
	if err := db.First(&stored, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if stored.Status != enums.TransactionStatusCompleted {
		t.Fatalf("expected status completed, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Fatal("expected completed_at stamped on completion")
	}
}

func TestUpdateStatusLeavesCompletedAtForOtherTargets(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	record := seedTransaction(t, db, uuid.New(), uuid.New(), enums.TransactionStatusPending, time.Now().UTC())

	swapped, err := repo.UpdateStatus(ctx, record.ID, enums.TransactionStatusPending, enums.TransactionStatusDisputed)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !swapped {
		t.Fatal("expected swap to succeed")
	}

	var stored models.Transaction
	if err := db.First(&stored, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if stored.Status != enums.TransactionStatusDisputed {
		t.Fatalf("expected status disputed, got %s", stored.Status)
	}
	if stored.CompletedAt != nil {
		t.Fatal("expected completed_at to stay empty for a dispute")
	}
}

func TestFindByIDNotFound(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestListByAccountCoversBothSides(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	asProvider := seedTransaction(t, db, account, uuid.New(), enums.TransactionStatusCompleted, base.Add(-2*time.Hour))
	asReceiver := seedTransaction(t, db, uuid.New(), account, enums.TransactionStatusPending, base.Add(-1*time.Hour))
	seedTransaction(t, db, uuid.New(), uuid.New(), enums.TransactionStatusPending, base)

	rows, err := repo.ListByAccount(ctx, account, 10, nil)
	if err != nil {
		t.Fatalf("list by account: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != asReceiver.ID || rows[1].ID != asProvider.ID {
		t.Fatal("expected newest-first ordering over both roles")
	}
}

func TestListByAccountCursorWindow(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	oldest := seedTransaction(t, db, account, uuid.New(), enums.TransactionStatusCompleted, base.Add(-3*time.Hour))
	middle := seedTransaction(t, db, account, uuid.New(), enums.TransactionStatusCancelled, base.Add(-2*time.Hour))
	newest := seedTransaction(t, db, account, uuid.New(), enums.TransactionStatusPending, base.Add(-1*time.Hour))

	cursor := &pkgpagination.Cursor{CreatedAt: newest.CreatedAt, ID: newest.ID}
	rows, err := repo.ListByAccount(ctx, account, 10, cursor)
	if err != nil {
		t.Fatalf("list by account: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after cursor, got %d", len(rows))
	}
	if rows[0].ID != middle.ID || rows[1].ID != oldest.ID {
		t.Fatal("expected rows strictly older than the cursor, newest first")
	}
}

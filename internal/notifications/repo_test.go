package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  event_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS device_tokens (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL UNIQUE,
  token TEXT NOT NULL,
  platform TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, accountID uuid.UUID, read bool, createdAt time.Time) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		ID:        uuid.New(),
		AccountID: accountID,
		Type:      enums.NotificationTypeServiceRequested,
		Title:     "New service request",
		Message:   "Garden maintenance was requested.",
		CreatedAt: createdAt,
	}
	if read {
		at := createdAt.Add(time.Minute)
		notification.ReadAt = &at
	}
	if err := db.Create(notification).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return notification
}

func TestListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)
	unread := seedNotification(t, db, account, false, base.Add(-time.Hour))
	seedNotification(t, db, account, true, base.Add(-2*time.Hour))
	seedNotification(t, db, uuid.New(), false, base)

	rows, next, err := repo.List(ctx, listNotificationsParams{AccountID: account, Limit: 10, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if next != nil {
		t.Fatal("expected no continuation cursor")
	}
	if len(rows) != 1 || rows[0].ID != unread.ID {
		t.Fatalf("expected only the unread notification, got %d rows", len(rows))
	}
}

func TestMarkReadScopedToAccount(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	notification := seedNotification(t, db, owner, false, time.Now().UTC())

	result, err := repo.MarkRead(ctx, uuid.New(), notification.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if result.Found || result.Updated {
		t.Fatal("expected another account's mark to find nothing")
	}

	result, err = repo.MarkRead(ctx, owner, notification.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !result.Found || !result.Updated {
		t.Fatal("expected the owner's mark to update the row")
	}

	// Marking again finds the row but updates nothing.
	result, err = repo.MarkRead(ctx, owner, notification.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}
	if !result.Found || result.Updated {
		t.Fatal("expected a repeated mark to be a found no-op")
	}
}

func TestMarkAllReadCountsUpdates(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := uuid.New()
	base := time.Now().UTC()
	seedNotification(t, db, account, false, base.Add(-time.Hour))
	seedNotification(t, db, account, false, base.Add(-2*time.Hour))
	seedNotification(t, db, account, true, base.Add(-3*time.Hour))

	count, err := repo.MarkAllRead(ctx, account, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows marked, got %d", count)
	}
}

func TestDeviceUpsertReplacesToken(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()

	account := uuid.New()
	first := &models.DeviceToken{ID: uuid.New(), AccountID: account, Token: "token-a"}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	platform := "android"
	second := &models.DeviceToken{ID: uuid.New(), AccountID: account, Token: "token-b", Platform: &platform}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stored, err := repo.FindByAccount(ctx, account)
	if err != nil {
		t.Fatalf("find by account: %v", err)
	}
	if stored.Token != "token-b" {
		t.Fatalf("expected replaced token, got %q", stored.Token)
	}
	if stored.Platform == nil || *stored.Platform != "android" {
		t.Fatal("expected platform updated")
	}

	if err := repo.DeleteByAccount(ctx, account); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByAccount(ctx, account); err == nil {
		t.Fatal("expected token removed")
	}
}

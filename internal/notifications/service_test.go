package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/pagination"
)

type fakeNotificationsRepo struct {
	markReadFn func(ctx context.Context, accountID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	listFn     func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
}

func (f *fakeNotificationsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (f *fakeNotificationsRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeNotificationsRepo) MarkRead(ctx context.Context, accountID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, accountID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeNotificationsRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationsRepo) MarkAllRead(ctx context.Context, accountID uuid.UUID, now time.Time) (int64, error) {
	return 0, nil
}

type fakeDeviceRepo struct {
	upserted []*models.DeviceToken
	deleted  []uuid.UUID
}

func (f *fakeDeviceRepo) WithTx(tx *gorm.DB) DeviceRepository { return f }

func (f *fakeDeviceRepo) Upsert(ctx context.Context, token *models.DeviceToken) error {
	f.upserted = append(f.upserted, token)
	return nil
}

func (f *fakeDeviceRepo) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.DeviceToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDeviceRepo) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	f.deleted = append(f.deleted, accountID)
	return nil
}

func newNotificationsService(t *testing.T, repo Repository, devices DeviceRepository) Service {
	t.Helper()
	svc, err := NewService(repo, devices)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestListRequiresAccount(t *testing.T) {
	svc := newNotificationsService(t, &fakeNotificationsRepo{}, &fakeDeviceRepo{})

	_, err := svc.List(context.Background(), ListParams{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	svc := newNotificationsService(t, &fakeNotificationsRepo{}, &fakeDeviceRepo{})

	_, err := svc.List(context.Background(), ListParams{AccountID: uuid.New(), Cursor: "not-a-cursor"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkReadNotFound(t *testing.T) {
	repo := &fakeNotificationsRepo{
		markReadFn: func(ctx context.Context, accountID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newNotificationsService(t, repo, &fakeDeviceRepo{})

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegisterDeviceTrimsToken(t *testing.T) {
	devices := &fakeDeviceRepo{}
	svc := newNotificationsService(t, &fakeNotificationsRepo{}, devices)

	account := uuid.New()
	err := svc.RegisterDevice(context.Background(), RegisterDeviceInput{
		AccountID: account,
		Token:     "  fcm-token  ",
		Platform:  "ios",
	})
	if err != nil {
		t.Fatalf("register device: %v", err)
	}
	if len(devices.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(devices.upserted))
	}
	stored := devices.upserted[0]
	if stored.Token != "fcm-token" || stored.AccountID != account {
		t.Fatalf("unexpected stored token %+v", stored)
	}
	if stored.Platform == nil || *stored.Platform != "ios" {
		t.Fatal("expected platform stored")
	}
}

func TestRegisterDeviceRequiresToken(t *testing.T) {
	svc := newNotificationsService(t, &fakeNotificationsRepo{}, &fakeDeviceRepo{})

	err := svc.RegisterDevice(context.Background(), RegisterDeviceInput{AccountID: uuid.New(), Token: "   "})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnregisterDevice(t *testing.T) {
	devices := &fakeDeviceRepo{}
	svc := newNotificationsService(t, &fakeNotificationsRepo{}, devices)

	account := uuid.New()
	if err := svc.UnregisterDevice(context.Background(), account); err != nil {
		t.Fatalf("unregister device: %v", err)
	}
	if len(devices.deleted) != 1 || devices.deleted[0] != account {
		t.Fatal("expected the account's token deleted")
	}
}

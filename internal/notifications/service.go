package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/pagination"
)

// Service defines notification list/read operations and device registration.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, accountID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error)
	RegisterDevice(ctx context.Context, input RegisterDeviceInput) error
	UnregisterDevice(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	repo    Repository
	devices DeviceRepository
}

// ListParams configures pagination for notifications.
type ListParams struct {
	AccountID  uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// RegisterDeviceInput carries an FCM registration token for an account.
type RegisterDeviceInput struct {
	AccountID uuid.UUID
	Token     string
	Platform  string
}

// NewService wires notifications dependencies.
func NewService(repo Repository, devices DeviceRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if devices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "device repository required")
	}
	return &service{repo: repo, devices: devices}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	query := listNotificationsParams{
		AccountID:  params.AccountID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, accountID, notificationID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, accountID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	count, err := s.repo.MarkAllRead(ctx, accountID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) RegisterDevice(ctx context.Context, input RegisterDeviceInput) error {
	if input.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device token required")
	}

	record := &models.DeviceToken{
		AccountID: input.AccountID,
		Token:     token,
	}
	if platform := strings.TrimSpace(input.Platform); platform != "" {
		record.Platform = &platform
	}
	if err := s.devices.Upsert(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store device token")
	}
	return nil
}

func (s *service) UnregisterDevice(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if err := s.devices.DeleteByAccount(ctx, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove device token")
	}
	return nil
}

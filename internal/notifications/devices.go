package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
)

// DeviceRepository stores FCM registration tokens, one per account.
type DeviceRepository interface {
	WithTx(tx *gorm.DB) DeviceRepository
	Upsert(ctx context.Context, token *models.DeviceToken) error
	FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.DeviceToken, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository returns a device token repository bound to the provided database.
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) WithTx(tx *gorm.DB) DeviceRepository {
	if tx == nil {
		return r
	}
	return &deviceRepository{db: tx}
}

func (r *deviceRepository) Upsert(ctx context.Context, token *models.DeviceToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "platform", "updated_at"}),
		}).
		Create(token).Error
}

func (r *deviceRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.DeviceToken, error) {
	var token models.DeviceToken
	if err := r.db.WithContext(ctx).First(&token, "account_id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *deviceRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DeviceToken{}, "account_id = ?", accountID).Error
}

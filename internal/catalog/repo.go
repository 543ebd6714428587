package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// Repository manages persistence for service listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.ServiceListing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error)
	List(ctx context.Context, opts ListQuery) ([]models.ServiceListing, error)
	SetStatus(ctx context.Context, id uuid.UUID, expected, next enums.ListingStatus, requestedBy *uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.ServiceListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	var listing models.ServiceListing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) List(ctx context.Context, opts ListQuery) ([]models.ServiceListing, error) {
	query := r.db.WithContext(ctx).Model(&models.ServiceListing{})

	if opts.ServiceType != "" {
		query = query.Where("service_type = ?", opts.ServiceType)
	}
	if opts.Province != "" {
		query = query.Where("province = ?", opts.Province)
	}
	if opts.Area != "" {
		query = query.Where("area = ?", opts.Area)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.ProviderID != uuid.Nil {
		query = query.Where("provider_id = ?", opts.ProviderID)
	}
	if opts.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.Cursor.CreatedAt, opts.Cursor.CreatedAt, opts.Cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.Limit)

	var rows []models.ServiceListing
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetStatus is a compare-and-swap on the status column. False means the
// listing was not in the expected state, so the caller lost a race or holds
// stale data. requested_by follows the transition: stamped on the way into
// ongoing, cleared on the way back to available.
func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, expected, next enums.ListingStatus, requestedBy *uuid.UUID) (bool, error) {
	updates := map[string]any{
		"status":     next,
		"updated_at": time.Now().UTC(),
	}
	if next == enums.ListingStatusAvailable {
		updates["requested_by"] = nil
	} else if requestedBy != nil {
		updates["requested_by"] = *requestedBy
	}

	result := r.db.WithContext(ctx).
		Model(&models.ServiceListing{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

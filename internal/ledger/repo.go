package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgpagination "github.com/timebankhq/timebank-backend/pkg/pagination"
)

// Repository manages persistence for transaction records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pkgpagination.Cursor) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transaction record repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.Transaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var record models.Transaction
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pkgpagination.Cursor) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("provider_id = ? OR receiver_id = ?", accountID, accountID)

	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(limit)

	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus is a compare-and-swap on the status column. False means the
// record was not in the expected state when the write landed, so a
// concurrent resolver got there first. completed_at is stamped with the
// same write when the target state is completed.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	if to == enums.TransactionStatusCompleted {
		updates["completed_at"] = now
	}

	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/posledger/internal/domain/receiving"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements receiving.ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.Receipt, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a receipt and locks its row
func (r *GormReceiptRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receiving.Receipt, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormReceiptRepository) find(query *gorm.DB, id uuid.UUID) (*receiving.Receipt, error) {
	var receipt receiving.Receipt
	if err := query.First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByOrder lists an order's receipts, oldest first. An empty status lists all.
func (r *GormReceiptRepository) FindByOrder(ctx context.Context, poID uuid.UUID, status receiving.ReceiptStatus) ([]receiving.Receipt, error) {
	var receipts []receiving.Receipt
	query := r.db.WithContext(ctx).Where("purchase_order_id = ?", poID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at ASC").Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// Create inserts a receipt
func (r *GormReceiptRepository) Create(ctx context.Context, receipt *receiving.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

// SaveWithLock writes the receipt with a version check, then increments
// receipt.Version
func (r *GormReceiptRepository) SaveWithLock(ctx context.Context, receipt *receiving.Receipt) error {
	expected := receipt.Version
	updatedAt := time.Now()
	result := r.db.WithContext(ctx).
		Model(&receiving.Receipt{}).
		Where("id = ? AND version = ?", receipt.ID, expected).
		Updates(map[string]any{
			"status":            receipt.Status,
			"processed_at":      receipt.ProcessedAt,
			"processed_by":      receipt.ProcessedBy,
			"ledger_entry_id":   receipt.LedgerEntryID,
			"removed_at":        receipt.RemovedAt,
			"removed_by":        receipt.RemovedBy,
			"reversal_entry_id": receipt.ReversalEntryID,
			"version":           expected + 1,
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
			"receipt %s was modified by another transaction", receipt.ID)
	}
	receipt.Version = expected + 1
	receipt.UpdatedAt = updatedAt
	return nil
}

// Ensure GormReceiptRepository implements receiving.ReceiptRepository
var _ receiving.ReceiptRepository = (*GormReceiptRepository)(nil)

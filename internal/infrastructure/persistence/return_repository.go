package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/posledger/internal/domain/returns"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReturnRepository implements returns.Repository using GORM
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// FindByID finds a return with its items
func (r *GormReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*returns.ReturnTransaction, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a return with its items and locks the return row
func (r *GormReturnRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*returns.ReturnTransaction, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormReturnRepository) find(query *gorm.DB, id uuid.UUID) (*returns.ReturnTransaction, error) {
	var rt returns.ReturnTransaction
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&rt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// FindBySale lists the returns recorded against a sale, oldest first
func (r *GormReturnRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]returns.ReturnTransaction, error) {
	var list []returns.ReturnTransaction
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts a return and its items
func (r *GormReturnRepository) Create(ctx context.Context, rt *returns.ReturnTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := rt.Items
		if err := tx.Omit("Items").Create(rt).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ReturnID = rt.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// SaveWithLock writes the return and its items with a version check, then
// increments rt.Version
func (r *GormReturnRepository) SaveWithLock(ctx context.Context, rt *returns.ReturnTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expected := rt.Version
		updatedAt := time.Now()

		result := tx.Model(&returns.ReturnTransaction{}).
			Where("id = ? AND version = ?", rt.ID, expected).
			Updates(map[string]any{
				"total_refund":      rt.TotalRefund,
				"status":            rt.Status,
				"status_changed_by": rt.StatusChangedBy,
				"status_changed_at": rt.StatusChangedAt,
				"version":           expected + 1,
				"updated_at":        updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
				"return %s was modified by another transaction", rt.ID)
		}

		ids := make([]uuid.UUID, len(rt.Items))
		for i := range rt.Items {
			rt.Items[i].ReturnID = rt.ID
			ids[i] = rt.Items[i].ID
		}
		if err := syncItems(tx, "return_id", rt.ID, ids, rt.Items); err != nil {
			return err
		}

		rt.Version = expected + 1
		rt.UpdatedAt = updatedAt
		return nil
	})
}

// Ensure GormReturnRepository implements returns.Repository
var _ returns.Repository = (*GormReturnRepository)(nil)

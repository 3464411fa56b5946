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

// GormPurchaseOrderRepository implements receiving.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds an order with its lines
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an order with its lines and locks the order row
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

// FindByItemID finds the order owning the given line
func (r *GormPurchaseOrderRepository) FindByItemID(ctx context.Context, itemID uuid.UUID) (*receiving.PurchaseOrder, error) {
	var item receiving.PurchaseOrderItem
	if err := r.db.WithContext(ctx).
		Select("purchase_order_id").
		First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, item.PurchaseOrderID)
}

func (r *GormPurchaseOrderRepository) find(query *gorm.DB, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	var po receiving.PurchaseOrder
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&po, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// Create inserts an order and its lines
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, po *receiving.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := po.Items
		if err := tx.Omit("Items").Create(po).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].PurchaseOrderID = po.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// SaveWithLock writes the order and its lines with a version check, then
// increments po.Version
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, po *receiving.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expected := po.Version
		updatedAt := time.Now()

		result := tx.Model(&receiving.PurchaseOrder{}).
			Where("id = ? AND version = ?", po.ID, expected).
			Updates(map[string]any{
				"supplier_name": po.SupplierName,
				"status":        po.Status,
				"received_at":   po.ReceivedAt,
				"version":       expected + 1,
				"updated_at":    updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
				"purchase order %s was modified by another transaction", po.OrderNumber)
		}

		ids := make([]uuid.UUID, len(po.Items))
		for i := range po.Items {
			po.Items[i].PurchaseOrderID = po.ID
			ids[i] = po.Items[i].ID
		}
		if err := syncItems(tx, "purchase_order_id", po.ID, ids, po.Items); err != nil {
			return err
		}

		po.Version = expected + 1
		po.UpdatedAt = updatedAt
		return nil
	})
}

// Ensure GormPurchaseOrderRepository implements receiving.PurchaseOrderRepository
var _ receiving.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/posledger/internal/domain/sale"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements sale.Repository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale with its items
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	return r.find(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a sale with its items and locks the sale row
func (r *GormSaleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

// FindBySaleNumber finds a sale by its number
func (r *GormSaleRepository) FindBySaleNumber(ctx context.Context, saleNumber string) (*sale.Sale, error) {
	return r.find(r.db.WithContext(ctx), "sale_number = ?", strings.TrimSpace(saleNumber))
}

func (r *GormSaleRepository) find(query *gorm.DB, cond string, arg any) (*sale.Sale, error) {
	var s sale.Sale
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&s, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindAll lists sales, optionally narrowed by status
func (r *GormSaleRepository) FindAll(ctx context.Context, filter shared.Filter, status sale.Status) ([]sale.Sale, int64, error) {
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&sale.Sale{})
		if status != "" {
			query = query.Where("status = ?", status)
		}
		if filter.Search != "" {
			query = query.Where("LOWER(sale_number) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sales []sale.Sale
	if err := paginate(base(), filter, SaleSortFields, "created_at").
		Preload("Items").
		Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// Create inserts a sale and its items
func (r *GormSaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := s.Items
		if err := tx.Omit("Items").Create(s).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].SaleID = s.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// SaveWithLock writes the sale and its items with a version check, then
// increments s.Version
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, s *sale.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expected := s.Version
		updatedAt := time.Now()

		result := tx.Model(&sale.Sale{}).
			Where("id = ? AND version = ?", s.ID, expected).
			Updates(map[string]any{
				"subtotal":       s.Subtotal,
				"total_discount": s.TotalDiscount,
				"tax":            s.Tax,
				"total":          s.Total,
				"status":         s.Status,
				"voided_by":      s.VoidedBy,
				"voided_at":      s.VoidedAt,
				"void_reason":    s.VoidReason,
				"refunded_by":    s.RefundedBy,
				"refunded_at":    s.RefundedAt,
				"refund_method":  s.RefundMethod,
				"refund_amount":  s.RefundAmount,
				"version":        expected + 1,
				"updated_at":     updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
				"sale %s was modified by another transaction", s.SaleNumber)
		}

		ids := make([]uuid.UUID, len(s.Items))
		for i := range s.Items {
			s.Items[i].SaleID = s.ID
			ids[i] = s.Items[i].ID
		}
		if err := syncItems(tx, "sale_id", s.ID, ids, s.Items); err != nil {
			return err
		}

		s.Version = expected + 1
		s.UpdatedAt = updatedAt
		return nil
	})
}

// Ensure GormSaleRepository implements sale.Repository
var _ sale.Repository = (*GormSaleRepository)(nil)

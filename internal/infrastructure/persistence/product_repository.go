package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements ledger.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Product, error) {
	var product ledger.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate finds a product and locks its row until the transaction ends
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Product, error) {
	var product ledger.Product
	if err := forUpdate(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKU finds a product by SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*ledger.Product, error) {
	var product ledger.Product
	if err := r.db.WithContext(ctx).
		Where("sku = ?", strings.TrimSpace(sku)).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindAll lists products
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Product, error) {
	var products []ledger.Product
	query := r.applySearch(r.db.WithContext(ctx).Model(&ledger.Product{}), filter)
	query = paginate(query, filter, ProductSortFields, "sku")
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindBelowReorder lists products whose on-hand is at or under their reorder level
func (r *GormProductRepository) FindBelowReorder(ctx context.Context, filter shared.Filter) ([]ledger.Product, error) {
	var products []ledger.Product
	query := r.applySearch(r.db.WithContext(ctx).Model(&ledger.Product{}), filter).
		Where("reorder_level > 0 AND on_hand <= reorder_level")
	query = paginate(query, filter, ProductSortFields, "on_hand")
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts a new product
func (r *GormProductRepository) Create(ctx context.Context, product *ledger.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// SaveWithLock writes the product's stock fields if the stored version still
// equals product.Version, then increments product.Version. Zero rows affected
// means another writer got there first.
func (r *GormProductRepository) SaveWithLock(ctx context.Context, product *ledger.Product) error {
	expected := product.Version
	updatedAt := time.Now()
	result := r.db.WithContext(ctx).
		Model(&ledger.Product{}).
		Where("id = ? AND version = ?", product.ID, expected).
		Updates(map[string]any{
			"on_hand":    product.OnHand,
			"version":    expected + 1,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
			"product %s was modified by another transaction", product.ID)
	}
	product.Version = expected + 1
	product.UpdatedAt = updatedAt
	return nil
}

func (r *GormProductRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search == "" {
		return query
	}
	pattern := "%" + strings.ToLower(filter.Search) + "%"
	return query.Where("LOWER(sku) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
}

// Ensure GormProductRepository implements ledger.ProductRepository
var _ ledger.ProductRepository = (*GormProductRepository)(nil)

package ledger

import (
	"context"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product (stock aggregate) persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate finds a product and holds a row lock on it until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by SKU
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindAll lists products
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindBelowReorder lists products at or under their reorder level
	FindBelowReorder(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Create inserts a new product
	Create(ctx context.Context, product *Product) error

	// SaveWithLock writes OnHand if product.Version still matches the stored
	// version, then increments product.Version
	SaveWithLock(ctx context.Context, product *Product) error
}

// EntryRepository is the append-only ledger store. It has no update or delete.
type EntryRepository interface {
	// Create appends an entry
	Create(ctx context.Context, entry *Entry) error

	// FindByProduct returns a product's entries, most recent first
	FindByProduct(ctx context.Context, productID uuid.UUID, filter HistoryFilter) ([]Entry, error)

	// FindByReference returns the entries posted for a workflow record, oldest first
	FindByReference(ctx context.Context, refType ReferenceType, refID string) ([]Entry, error)

	// SumByProduct returns the sum of a product's signed quantities
	SumByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// SumAll returns the ledger sum for every product that has entries
	SumAll(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error)
}

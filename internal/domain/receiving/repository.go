package receiving

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByIDForUpdate finds an order with its lines and locks the order row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByItemID finds the order owning the given line
	FindByItemID(ctx context.Context, itemID uuid.UUID) (*PurchaseOrder, error)

	// Create inserts an order and its lines
	Create(ctx context.Context, po *PurchaseOrder) error

	// SaveWithLock writes the order and its lines if po.Version still matches
	// the stored version, then increments po.Version
	SaveWithLock(ctx context.Context, po *PurchaseOrder) error
}

// ReceiptRepository defines the interface for receipt row persistence
type ReceiptRepository interface {
	// FindByID finds a receipt
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByIDForUpdate finds a receipt and locks its row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByOrder lists an order's receipts with the given status, oldest first.
	// An empty status lists all.
	FindByOrder(ctx context.Context, poID uuid.UUID, status ReceiptStatus) ([]Receipt, error)

	// Create inserts a receipt
	Create(ctx context.Context, r *Receipt) error

	// SaveWithLock writes the receipt if r.Version still matches the stored
	// version, then increments r.Version
	SaveWithLock(ctx context.Context, r *Receipt) error
}

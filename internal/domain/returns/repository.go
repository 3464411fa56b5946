package returns

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for return transaction persistence
type Repository interface {
	// FindByID finds a return with its items
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnTransaction, error)

	// FindByIDForUpdate finds a return with its items and locks the return row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ReturnTransaction, error)

	// FindBySale lists the returns recorded against a sale
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]ReturnTransaction, error)

	// Create inserts a return and its items
	Create(ctx context.Context, r *ReturnTransaction) error

	// SaveWithLock writes the return and its items if r.Version still matches
	// the stored version, then increments r.Version
	SaveWithLock(ctx context.Context, r *ReturnTransaction) error
}

package sale

import (
	"context"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for sale persistence
type Repository interface {
	// FindByID finds a sale with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByIDForUpdate finds a sale with its items and locks the sale row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindBySaleNumber finds a sale by its number
	FindBySaleNumber(ctx context.Context, saleNumber string) (*Sale, error)

	// FindAll lists sales, optionally narrowed by status
	FindAll(ctx context.Context, filter shared.Filter, status Status) ([]Sale, int64, error)

	// Create inserts a sale and its items
	Create(ctx context.Context, s *Sale) error

	// SaveWithLock writes the sale and its items if s.Version still matches
	// the stored version, then increments s.Version
	SaveWithLock(ctx context.Context, s *Sale) error
}

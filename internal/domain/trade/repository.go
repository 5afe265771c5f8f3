package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create inserts an order together with its items
	Create(ctx context.Context, order *Order) error

	// FindByID finds an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate finds an order with its items and takes an exclusive
	// lock on the order row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByBuyer lists a buyer's orders, newest first
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]Order, int64, error)

	// UpdateStatus persists the order's status and timestamps. It fails with
	// shared.ErrConcurrencyConflict if the stored version differs.
	UpdateStatus(ctx context.Context, order *Order) error
}

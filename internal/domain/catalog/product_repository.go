package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the product lookups and stock writes the
// fulfillment core needs
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate finds a product and takes an exclusive row lock
	// that is held until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// UpdateStock writes the product's stock level
	UpdateStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}

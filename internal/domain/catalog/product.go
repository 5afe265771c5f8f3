package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places a listing price may carry
const PriceScale = 2

// Product is the slice of a marketplace listing the fulfillment core works
// with. Listing CRUD lives elsewhere; here only Stock is ever written, and
// only through Reserve and Restore.
type Product struct {
	shared.BaseAggregateRoot
	FarmerID uuid.UUID
	Name     string
	Price    decimal.Decimal
	Stock    decimal.Decimal
	IsActive bool
}

// NewProduct creates a product listing owned by a farmer
func NewProduct(farmerID uuid.UUID, name string, price, stock decimal.Decimal) (*Product, error) {
	if farmerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product must have an owning farmer")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if !price.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product price must be positive")
	}
	if price.Exponent() < -PriceScale && !price.Equal(price.Round(PriceScale)) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product price cannot have more than 2 decimal places")
	}
	if stock.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product stock cannot be negative")
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FarmerID:          farmerID,
		Name:              name,
		Price:             price,
		Stock:             stock,
		IsActive:          true,
	}, nil
}

// IsOwnedBy reports whether the given user is the selling farmer
func (p *Product) IsOwnedBy(userID uuid.UUID) bool {
	return p.FarmerID == userID
}

// HasStock reports whether qty units are currently available
func (p *Product) HasStock(qty decimal.Decimal) bool {
	return p.Stock.GreaterThanOrEqual(qty)
}

// Reserve takes qty units out of stock. Stock is left untouched on failure.
func (p *Product) Reserve(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if !p.HasStock(qty) {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Not enough stock for %s: requested %s, available %s", p.Name, qty, p.Stock))
	}
	p.Stock = p.Stock.Sub(qty)
	p.Bump(time.Now())
	return nil
}

// Restore puts qty units back into stock
func (p *Product) Restore(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	p.Stock = p.Stock.Add(qty)
	p.Bump(time.Now())
	return nil
}

// Deactivate hides the product from new orders
func (p *Product) Deactivate() {
	p.IsActive = false
}

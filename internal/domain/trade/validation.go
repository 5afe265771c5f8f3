package trade

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places a line quantity may carry
const QuantityScale = 2

// MaxLineItems caps the number of distinct products in one order
const MaxLineItems = 50

// LineItem is one {product, quantity} pair of an order request
type LineItem struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// NormalizeLines checks line quantities, merges repeated products by summing
// their quantities and returns the lines sorted by product id. Sorting gives
// every placement the same row-lock order.
func NormalizeLines(lines []LineItem) ([]LineItem, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must have at least one item")
	}

	merged := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID is required")
		}
		if !line.Quantity.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
		}
		if !line.Quantity.Equal(line.Quantity.Truncate(QuantityScale)) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Quantity cannot have more than %d decimal places", QuantityScale))
		}
		merged[line.ProductID] = merged[line.ProductID].Add(line.Quantity)
	}
	if len(merged) > MaxLineItems {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Order cannot contain more than %d products", MaxLineItems))
	}

	result := make([]LineItem, 0, len(merged))
	for id, qty := range merged {
		result = append(result, LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].ProductID[:], result[j].ProductID[:]) < 0
	})
	return result, nil
}

// Validate runs the placement checks against live product state and the
// buyer's balance and returns the computed order total. Checks run in
// passes so the reported error kind does not depend on line order:
// availability and self-purchase first, then stock, then funds.
func Validate(buyer identity.Actor, lines []LineItem, products map[uuid.UUID]*catalog.Product, balance decimal.Decimal) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput, "Order must have at least one item")
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return decimal.Zero, productNotFound(line.ProductID)
		}
		if !product.IsActive {
			return decimal.Zero, shared.NewDomainError(shared.CodeProductInactive,
				fmt.Sprintf("Product %s is not available for purchase", product.Name))
		}
		if product.IsOwnedBy(buyer.UserID) {
			return decimal.Zero, shared.NewDomainError(shared.CodeSelfPurchase,
				fmt.Sprintf("You cannot order your own product %s", product.Name))
		}
	}

	for _, line := range lines {
		product := products[line.ProductID]
		if !product.HasStock(line.Quantity) {
			return decimal.Zero, shared.NewDomainError(shared.CodeInsufficientStock,
				fmt.Sprintf("Not enough stock for %s: requested %s, available %s", product.Name, line.Quantity, product.Stock))
		}
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(products[line.ProductID].Price.Mul(line.Quantity))
	}
	if balance.LessThan(total) {
		return decimal.Zero, shared.NewDomainError(shared.CodeInsufficientFunds,
			fmt.Sprintf("Insufficient wallet balance: required %s, available %s", total, balance))
	}

	return total, nil
}

func productNotFound(id uuid.UUID) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Product %s not found", id))
}

package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Guard validates and applies stock changes. All methods must be called with
// repositories bound to an open transaction: the row locks they take are
// only released when that transaction ends.
type Guard struct {
	logger *zap.Logger
}

// NewGuard creates a new inventory guard
func NewGuard(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger}
}

// LockProducts locks the given products in ascending id order and returns
// them keyed by id. A missing product fails with NOT_FOUND.
func (g *Guard) LockProducts(ctx context.Context, products catalog.ProductRepository, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	ordered := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})

	locked := make(map[uuid.UUID]*catalog.Product, len(ordered))
	for _, id := range ordered {
		product, err := products.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Product %s not found", id))
			}
			return nil, fmt.Errorf("lock product %s: %w", id, err)
		}
		locked[id] = product
	}
	return locked, nil
}

// Reserve takes qty units of a product that the caller has locked with
// LockProducts. Nothing is written if stock is insufficient.
func (g *Guard) Reserve(ctx context.Context, products catalog.ProductRepository, product *catalog.Product, qty decimal.Decimal) error {
	if err := product.Reserve(qty); err != nil {
		return err
	}
	if err := products.UpdateStock(ctx, product.ID, product.Stock); err != nil {
		return fmt.Errorf("update stock for product %s: %w", product.ID, err)
	}
	g.logger.Debug("stock reserved",
		zap.String("product_id", product.ID.String()),
		zap.String("quantity", qty.String()),
		zap.String("stock", product.Stock.String()),
	)
	return nil
}

// Restore returns qty units to a locked product. qty may not exceed the
// quantity originally reserved for the order item being compensated.
func (g *Guard) Restore(ctx context.Context, products catalog.ProductRepository, product *catalog.Product, qty, reserved decimal.Decimal) error {
	if qty.GreaterThan(reserved) {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Cannot restore %s units of %s: only %s were reserved", qty, product.Name, reserved))
	}
	if err := product.Restore(qty); err != nil {
		return err
	}
	if err := products.UpdateStock(ctx, product.ID, product.Stock); err != nil {
		return fmt.Errorf("update stock for product %s: %w", product.ID, err)
	}
	g.logger.Debug("stock restored",
		zap.String("product_id", product.ID.String()),
		zap.String("quantity", qty.String()),
		zap.String("stock", product.Stock.String()),
	)
	return nil
}

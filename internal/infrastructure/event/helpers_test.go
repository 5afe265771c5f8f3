package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/harvestplace/backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *trade.Order {
	t.Helper()

	product, err := catalog.NewProduct(uuid.New(), "Tomatoes", testutil.Dec("100"), testutil.Dec("10"))
	require.NoError(t, err)

	order, err := trade.NewOrder(uuid.New(),
		[]trade.LineItem{{ProductID: product.ID, Quantity: testutil.Dec("2")}},
		map[uuid.UUID]*catalog.Product{product.ID: product},
	)
	require.NoError(t, err)
	return order
}

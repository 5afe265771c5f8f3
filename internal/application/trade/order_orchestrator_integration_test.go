//go:build integration

package trade

import (
	"sync"
	"testing"

	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cancels race on separate connections; the order row lock lets exactly one
// of them see the pending status and compensate.
func TestCancelOrder_ConcurrentCancelsRefundOnce_Postgres(t *testing.T) {
	h := newHarnessOn(t, testutil.NewPostgresDB(t).DB)
	product := testutil.SeedProduct(t, h.db, h.farm.UserID, "Tomatoes", "100", "10")
	testutil.SeedWallet(t, h.db, h.buyer.UserID, "500")

	placed, err := h.place(h.buyer, product.ID, "2")
	require.NoError(t, err)

	const attempts = 6
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = h.orch.CancelOrder(h.ctx, placed.Order.ID, h.buyer)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	testutil.RequireDecimal(t, "500", testutil.BalanceOf(t, h.db, h.buyer.UserID))
	testutil.RequireDecimal(t, "0", testutil.BalanceOf(t, h.db, h.farm.UserID))
	testutil.RequireDecimal(t, "10", testutil.StockOf(t, h.db, product.ID))
	entries, err := h.txs.FindByReference(h.ctx, placed.Order.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	h.requireReconciled(t, h.buyer.UserID)
	h.requireReconciled(t, h.farm.UserID)
}

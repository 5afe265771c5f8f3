package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/application/unitofwork"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/infrastructure/event"
	"github.com/harvestplace/backend/internal/infrastructure/persistence"
	"github.com/harvestplace/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newGuardFixture(t *testing.T) (*gorm.DB, *persistence.GormTransactionScope, *Guard) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return db, persistence.NewGormTransactionScope(db, event.NewEventSerializer()), NewGuard(nil)
}

func TestGuard_LockProducts(t *testing.T) {
	db, scope, guard := newGuardFixture(t)
	ctx := context.Background()
	farmer := uuid.New()
	apples := testutil.SeedProduct(t, db, farmer, "Apples", "3.50", "40")
	pears := testutil.SeedProduct(t, db, farmer, "Pears", "4.00", "12")

	t.Run("deduplicates ids", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
			locked, err := guard.LockProducts(ctx, repos.Products(), []uuid.UUID{pears.ID, apples.ID, pears.ID})
			require.NoError(t, err)
			assert.Len(t, locked, 2)
			testutil.RequireDecimal(t, "40", locked[apples.ID].Stock)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("missing product", func(t *testing.T) {
		missing := uuid.New()
		err := scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
			_, err := guard.LockProducts(ctx, repos.Products(), []uuid.UUID{apples.ID, missing})
			return err
		})
		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, err.Error(), missing.String())
	})
}

func TestGuard_Reserve(t *testing.T) {
	db, scope, guard := newGuardFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, uuid.New(), "Carrots", "1.20", "10")

	err := scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		locked, err := guard.LockProducts(ctx, repos.Products(), []uuid.UUID{product.ID})
		if err != nil {
			return err
		}
		return guard.Reserve(ctx, repos.Products(), locked[product.ID], testutil.Dec("7.5"))
	})
	require.NoError(t, err)
	testutil.RequireDecimal(t, "2.5", testutil.StockOf(t, db, product.ID))

	err = scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		locked, err := guard.LockProducts(ctx, repos.Products(), []uuid.UUID{product.ID})
		if err != nil {
			return err
		}
		return guard.Reserve(ctx, repos.Products(), locked[product.ID], testutil.Dec("3"))
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	testutil.RequireDecimal(t, "2.5", testutil.StockOf(t, db, product.ID))
}

func TestGuard_ReserveRollsBackWithTransaction(t *testing.T) {
	db, scope, guard := newGuardFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, uuid.New(), "Onions", "0.80", "10")
	boom := errors.New("payment failed")

	err := scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		locked, err := guard.LockProducts(ctx, repos.Products(), []uuid.UUID{product.ID})
		if err != nil {
			return err
		}
		if err := guard.Reserve(ctx, repos.Products(), locked[product.ID], testutil.Dec("4")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	testutil.RequireDecimal(t, "10", testutil.StockOf(t, db, product.ID))
}

func TestGuard_Restore(t *testing.T) {
	db, scope, guard := newGuardFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, uuid.New(), "Kale", "2.00", "5")

	restore := func(qty, reserved string) error {
		return scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
			locked, err := guard.LockProducts(ctx, repos.Products(), []uuid.UUID{product.ID})
			if err != nil {
				return err
			}
			return guard.Restore(ctx, repos.Products(), locked[product.ID], testutil.Dec(qty), testutil.Dec(reserved))
		})
	}

	require.NoError(t, restore("3", "3"))
	testutil.RequireDecimal(t, "8", testutil.StockOf(t, db, product.ID))

	err := restore("4", "3")
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	testutil.RequireDecimal(t, "8", testutil.StockOf(t, db, product.ID))
}

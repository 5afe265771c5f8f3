package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Dec parses a decimal literal or panics
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NewFarmer() identity.Actor {
	return identity.NewActor(uuid.New(), identity.RoleFarmer)
}

func NewRetailer() identity.Actor {
	return identity.NewActor(uuid.New(), identity.RoleRetailer)
}

func NewStaff() identity.Actor {
	return identity.NewActor(uuid.New(), identity.RoleStaff)
}

// SeedProduct inserts an active product
func SeedProduct(t *testing.T, db *gorm.DB, farmerID uuid.UUID, name, price, stock string) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(farmerID, name, Dec(price), Dec(stock))
	require.NoError(t, err)
	require.NoError(t, db.Create(models.ProductModelFromDomain(p)).Error)
	return p
}

// SeedWallet creates a wallet for userID. A positive balance is funded
// through an opening credit so the ledger sums to the balance.
func SeedWallet(t *testing.T, db *gorm.DB, userID uuid.UUID, balance string) *finance.Wallet {
	t.Helper()

	w, err := finance.NewWallet(userID)
	require.NoError(t, err)

	var opening *finance.Transaction
	if amount := Dec(balance); amount.IsPositive() {
		opening, err = w.Credit(amount, "Opening balance")
		require.NoError(t, err)
	}

	wm := &models.WalletModel{}
	wm.FromDomain(w)
	require.NoError(t, db.Create(wm).Error)

	if opening != nil {
		tm := &models.WalletTransactionModel{}
		tm.FromDomain(opening)
		require.NoError(t, db.Create(tm).Error)
	}
	return w
}

// StockOf reads a product's current stock
func StockOf(t *testing.T, db *gorm.DB, productID uuid.UUID) decimal.Decimal {
	t.Helper()

	var m models.ProductModel
	require.NoError(t, db.First(&m, "id = ?", productID).Error)
	return m.Stock
}

// BalanceOf reads a user's wallet balance, zero when the wallet does not exist
func BalanceOf(t *testing.T, db *gorm.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var m models.WalletModel
	err := db.Where("user_id = ?", userID).Limit(1).Find(&m).Error
	require.NoError(t, err)
	return m.Balance
}

// CountRows counts the rows of model's table
func CountRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// RequireDecimal fails unless got equals want numerically
func RequireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, Dec(want).Equal(got), "expected %s, got %s %v", want, got, msgAndArgs)
}

package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet persistence
type WalletRepository interface {
	// FindByUserID finds the wallet owned by a user
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// FindByUserIDForUpdate finds the wallet owned by a user and takes an
	// exclusive row lock held until the surrounding transaction ends
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// Create inserts a new wallet. If the user already has one, the
	// existing row is kept and no error is returned.
	Create(ctx context.Context, wallet *Wallet) error

	// UpdateBalance persists the wallet's balance and version
	UpdateBalance(ctx context.Context, wallet *Wallet) error
}

// TransactionRepository defines the interface for the append-only ledger
// (entries are never updated or deleted)
type TransactionRepository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, tx *Transaction) error

	// FindByWallet lists a wallet's entries, newest first
	FindByWallet(ctx context.Context, walletID uuid.UUID, filter shared.Filter) ([]Transaction, int64, error)

	// FindByReference lists the entries belonging to an order
	FindByReference(ctx context.Context, ref uuid.UUID) ([]Transaction, error)

	// SumSignedByWallet returns the signed sum and the count of a wallet's entries
	SumSignedByWallet(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, int64, error)
}

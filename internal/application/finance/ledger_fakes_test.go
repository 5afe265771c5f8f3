package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// recordingRepos reports the order in which wallets are locked
type recordingRepos struct {
	onLock func(uuid.UUID)
}

func (r *recordingRepos) Wallets() finance.WalletRepository         { return &recordingWallets{r} }
func (r *recordingRepos) Transactions() finance.TransactionRepository { return nil }

type recordingWallets struct {
	repos *recordingRepos
}

func (w *recordingWallets) FindByUserID(context.Context, uuid.UUID) (*finance.Wallet, error) {
	return nil, shared.ErrNotFound
}

func (w *recordingWallets) FindByUserIDForUpdate(_ context.Context, userID uuid.UUID) (*finance.Wallet, error) {
	w.repos.onLock(userID)
	wallet, err := finance.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	wallet.Balance = decimal.Zero
	return wallet, nil
}

func (w *recordingWallets) Create(context.Context, *finance.Wallet) error       { return nil }
func (w *recordingWallets) UpdateBalance(context.Context, *finance.Wallet) error { return nil }

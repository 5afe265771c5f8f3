package finance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerRepositories is the subset of transactional repositories the
// ledger writes through
type LedgerRepositories interface {
	Wallets() finance.WalletRepository
	Transactions() finance.TransactionRepository
}

// Ledger applies credits and debits to wallets. Each call updates the
// balance and appends the Transaction on the caller's transaction, so a
// failed append rolls the balance change back with it.
type Ledger struct {
	logger *zap.Logger
}

// NewLedger creates a new ledger
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{logger: logger}
}

// LockWallet returns the user's wallet holding a row lock, creating the
// wallet first if the user has none yet
func (l *Ledger) LockWallet(ctx context.Context, repos LedgerRepositories, userID uuid.UUID) (*finance.Wallet, error) {
	wallet, err := repos.Wallets().FindByUserIDForUpdate(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lock wallet for user %s: %w", userID, err)
	}

	fresh, err := finance.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	// Create ignores a concurrent insert for the same user; re-reading
	// under lock picks up whichever row won.
	if err := repos.Wallets().Create(ctx, fresh); err != nil {
		return nil, fmt.Errorf("create wallet for user %s: %w", userID, err)
	}
	wallet, err = repos.Wallets().FindByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet for user %s: %w", userID, err)
	}
	l.logger.Info("wallet created", zap.String("user_id", userID.String()))
	return wallet, nil
}

// LockWallets locks the wallets of several users in ascending user id order
func (l *Ledger) LockWallets(ctx context.Context, repos LedgerRepositories, userIDs []uuid.UUID) (map[uuid.UUID]*finance.Wallet, error) {
	ordered := make([]uuid.UUID, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})

	wallets := make(map[uuid.UUID]*finance.Wallet, len(ordered))
	for _, id := range ordered {
		w, err := l.LockWallet(ctx, repos, id)
		if err != nil {
			return nil, err
		}
		wallets[id] = w
	}
	return wallets, nil
}

// Credit adds amount to a locked wallet and appends the ledger entry
func (l *Ledger) Credit(ctx context.Context, repos LedgerRepositories, wallet *finance.Wallet, amount decimal.Decimal, description string, ref *uuid.UUID) (*finance.Transaction, error) {
	tx, err := wallet.Credit(amount, description)
	if err != nil {
		return nil, err
	}
	return l.persist(ctx, repos, wallet, tx, ref)
}

// Debit removes amount from a locked wallet and appends the ledger entry.
// It fails with INSUFFICIENT_FUNDS without writing anything when the
// balance does not cover amount.
func (l *Ledger) Debit(ctx context.Context, repos LedgerRepositories, wallet *finance.Wallet, amount decimal.Decimal, description string, ref *uuid.UUID) (*finance.Transaction, error) {
	tx, err := wallet.Debit(amount, description)
	if err != nil {
		return nil, err
	}
	return l.persist(ctx, repos, wallet, tx, ref)
}

func (l *Ledger) persist(ctx context.Context, repos LedgerRepositories, wallet *finance.Wallet, tx *finance.Transaction, ref *uuid.UUID) (*finance.Transaction, error) {
	if ref != nil {
		tx.WithReference(*ref)
	}
	if err := repos.Wallets().UpdateBalance(ctx, wallet); err != nil {
		return nil, fmt.Errorf("update wallet %s balance: %w", wallet.ID, err)
	}
	if err := repos.Transactions().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("append ledger entry for wallet %s: %w", wallet.ID, err)
	}
	l.logger.Debug("ledger entry appended",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("kind", tx.Kind.String()),
		zap.String("amount", tx.Amount.String()),
		zap.String("balance", wallet.Balance.String()),
	)
	return tx, nil
}

package finance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/application/unitofwork"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

var errUnexpectedCall = errors.New("unexpected repository call")

// snapshotScope records whether ledger reads happen inside one transaction
// while the wallet row is locked
type snapshotScope struct {
	wallet      *finance.Wallet
	ledgerTotal decimal.Decimal
	entries     int64

	inTx            bool
	locked          bool
	summedUnderLock bool
}

func (s *snapshotScope) Execute(_ context.Context, fn func(repos unitofwork.TransactionalRepositories) error) error {
	s.inTx = true
	defer func() {
		s.inTx = false
		s.locked = false
	}()
	return fn(snapshotRepos{s})
}

type snapshotRepos struct{ s *snapshotScope }

func (r snapshotRepos) Products() catalog.ProductRepository         { return nil }
func (r snapshotRepos) Orders() trade.OrderRepository               { return nil }
func (r snapshotRepos) Outbox() shared.OutboxWriter                 { return nil }
func (r snapshotRepos) Wallets() finance.WalletRepository           { return snapshotWallets(r) }
func (r snapshotRepos) Transactions() finance.TransactionRepository { return snapshotLedger(r) }

type snapshotWallets struct{ s *snapshotScope }

func (w snapshotWallets) FindByUserID(context.Context, uuid.UUID) (*finance.Wallet, error) {
	return nil, errUnexpectedCall
}

func (w snapshotWallets) FindByUserIDForUpdate(context.Context, uuid.UUID) (*finance.Wallet, error) {
	w.s.locked = w.s.inTx
	return w.s.wallet, nil
}

func (w snapshotWallets) Create(context.Context, *finance.Wallet) error        { return errUnexpectedCall }
func (w snapshotWallets) UpdateBalance(context.Context, *finance.Wallet) error { return errUnexpectedCall }

type snapshotLedger struct{ s *snapshotScope }

func (l snapshotLedger) Create(context.Context, *finance.Transaction) error { return errUnexpectedCall }

func (l snapshotLedger) FindByWallet(context.Context, uuid.UUID, shared.Filter) ([]finance.Transaction, int64, error) {
	return nil, 0, errUnexpectedCall
}

func (l snapshotLedger) FindByReference(context.Context, uuid.UUID) ([]finance.Transaction, error) {
	return nil, errUnexpectedCall
}

func (l snapshotLedger) SumSignedByWallet(context.Context, uuid.UUID) (decimal.Decimal, int64, error) {
	l.s.summedUnderLock = l.s.inTx && l.s.locked
	return l.s.ledgerTotal, l.s.entries, nil
}

package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/application/unitofwork"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DepositDescription is the ledger description of a manual top-up
const DepositDescription = "Manual deposit via API"

// RecentTransactionsLimit is how many entries the wallet summary embeds
const RecentTransactionsLimit = 20

// EntryRecorder counts committed ledger entries
type EntryRecorder interface {
	RecordLedgerEntries(ctx context.Context, kind string, count int)
}

// WalletService serves the wallet read path and manual deposits
type WalletService struct {
	scope      unitofwork.TransactionScope
	walletRepo finance.WalletRepository
	txRepo     finance.TransactionRepository
	ledger     *Ledger
	recorder   EntryRecorder
	logger     *zap.Logger
}

// NewWalletService creates a new WalletService
func NewWalletService(
	scope unitofwork.TransactionScope,
	walletRepo finance.WalletRepository,
	txRepo finance.TransactionRepository,
	ledger *Ledger,
	logger *zap.Logger,
) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{
		scope:      scope,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		ledger:     ledger,
		logger:     logger,
	}
}

// SetRecorder sets the ledger metrics recorder
func (s *WalletService) SetRecorder(recorder EntryRecorder) {
	s.recorder = recorder
}

// GetWallet returns the user's wallet and most recent transactions,
// creating the wallet on first access
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*WalletResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wallet", "get")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, userID.String())

	wallet, err := s.ensureWallet(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	filter := shared.Filter{Page: 1, PageSize: RecentTransactionsLimit}.Normalize()
	txs, _, err := s.txRepo.FindByWallet(ctx, wallet.ID, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToWalletResponse(wallet, txs)
	return &response, nil
}

// ListTransactions returns a page of the user's ledger entries, newest first
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[TransactionResponse], error) {
	filter = filter.Normalize()

	wallet, err := s.ensureWallet(ctx, userID)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	txs, total, err := s.txRepo.FindByWallet(ctx, wallet.ID, filter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	return shared.NewPaginated(ToTransactionResponses(txs), total, filter.Page, filter.PageSize), nil
}

// Deposit credits the user's wallet
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, req DepositRequest) (*DepositResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wallet", "deposit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, userID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if err := finance.ValidateAmount(req.Amount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var wallet *finance.Wallet
	var entry *finance.Transaction
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		wallet, err = s.ledger.LockWallet(ctx, repos, userID)
		if err != nil {
			return err
		}
		entry, err = s.ledger.Credit(ctx, repos, wallet, req.Amount, DepositDescription, nil)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordLedgerEntries(ctx, finance.TransactionKindCredit.String(), 1)
	}
	s.logger.Info("wallet deposit",
		zap.String("user_id", userID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("balance", wallet.Balance.String()),
	)

	return &DepositResponse{
		Detail:      fmt.Sprintf("Deposited %s", req.Amount),
		Balance:     wallet.Balance,
		Transaction: ToTransactionResponse(entry),
	}, nil
}

// Reconcile compares the user's balance with the signed sum of the ledger.
// Both are read under the wallet row lock every ledger writer takes, so a
// concurrent order or deposit is either wholly visible or not at all. A
// user without a wallet gets an empty one, as with GetWallet.
func (s *WalletService) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconciliationResponse, error) {
	var result finance.ReconciliationResult
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		wallet, err := s.ledger.LockWallet(ctx, repos, userID)
		if err != nil {
			return err
		}
		sum, count, err := repos.Transactions().SumSignedByWallet(ctx, wallet.ID)
		if err != nil {
			return fmt.Errorf("sum ledger of wallet %s: %w", wallet.ID, err)
		}
		result = finance.ReconciliationResult{
			WalletID:    wallet.ID,
			Balance:     wallet.Balance,
			LedgerTotal: sum,
			EntryCount:  count,
			CheckedAt:   time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Balanced() {
		s.logger.Error("wallet out of balance with ledger",
			zap.String("wallet_id", result.WalletID.String()),
			zap.String("balance", result.Balance.String()),
			zap.String("ledger_total", result.LedgerTotal.String()),
		)
	}
	return &ReconciliationResponse{
		WalletID:    result.WalletID,
		Balance:     result.Balance,
		LedgerTotal: result.LedgerTotal,
		EntryCount:  result.EntryCount,
		Balanced:    result.Balanced(),
		CheckedAt:   result.CheckedAt,
	}, nil
}

func (s *WalletService) ensureWallet(ctx context.Context, userID uuid.UUID) (*finance.Wallet, error) {
	wallet, err := s.walletRepo.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		wallet, err = s.ledger.LockWallet(ctx, repos, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	financeapp "github.com/harvestplace/backend/internal/application/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Reconciler compares one wallet's balance with the sum of its ledger
type Reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID) (*financeapp.ReconciliationResponse, error)
}

// WalletLister pages through wallet owners in ascending id order
type WalletLister interface {
	ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// ReconciliationRecorder counts reconciliation outcomes
type ReconciliationRecorder interface {
	RecordReconciliation(ctx context.Context, balanced bool)
}

// ReconciliationExecutor checks the wallet named by a job. A wallet whose
// balance has drifted from its ledger is logged and counted, not repaired.
type ReconciliationExecutor struct {
	reconciler Reconciler
	recorder   ReconciliationRecorder
	logger     *zap.Logger
}

// NewReconciliationExecutor builds an executor. The recorder may be nil.
func NewReconciliationExecutor(reconciler Reconciler, recorder ReconciliationRecorder, logger *zap.Logger) *ReconciliationExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationExecutor{reconciler: reconciler, recorder: recorder, logger: logger.Named("reconcile")}
}

// Execute reconciles the job's user. A user removed since the sweep listed
// them is skipped; any other reconcile error is returned so the scheduler
// retries the job.
func (e *ReconciliationExecutor) Execute(ctx context.Context, job *Job) error {
	result, err := e.reconciler.Reconcile(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	if e.recorder != nil {
		e.recorder.RecordReconciliation(ctx, result.Balanced)
	}
	if !result.Balanced {
		e.logger.Error("Wallet balance does not match ledger",
			zap.String("user_id", job.UserID.String()),
			zap.String("wallet_id", result.WalletID.String()),
			zap.String("balance", result.Balance.String()),
			zap.String("ledger_total", result.LedgerTotal.String()),
			zap.Int64("entry_count", result.EntryCount),
		)
	}
	return nil
}

// SweepConfig controls how often every wallet is queued for reconciliation
type SweepConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// ReconciliationSweep periodically queues a reconciliation job for every
// wallet on the scheduler
type ReconciliationSweep struct {
	config    SweepConfig
	scheduler *Scheduler
	wallets   WalletLister
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationSweep builds a sweep. BatchSize defaults to 500.
func NewReconciliationSweep(config SweepConfig, scheduler *Scheduler, wallets WalletLister, logger *zap.Logger) *ReconciliationSweep {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &ReconciliationSweep{
		config:    config,
		scheduler: scheduler,
		wallets:   wallets,
		logger:    logger.Named("reconcile_sweep"),
	}
}

// Start runs a sweep every Interval until Stop is called
func (r *ReconciliationSweep) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.config.Interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.SweepOnce(ctx); err != nil && ctx.Err() == nil {
					r.logger.Warn("Reconciliation sweep incomplete", zap.Error(err))
				}
			}
		}
	}()

	r.logger.Info("Reconciliation sweep started", zap.Duration("interval", r.config.Interval))
}

// Stop ends the sweep loop. Jobs already queued belong to the scheduler.
func (r *ReconciliationSweep) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
}

// SweepOnce queues one job per wallet and returns how many were queued
func (r *ReconciliationSweep) SweepOnce(ctx context.Context) (int, error) {
	queued := 0
	after := uuid.Nil
	for {
		ids, err := r.wallets.ListUserIDs(ctx, after, r.config.BatchSize)
		if err != nil {
			return queued, err
		}
		for _, id := range ids {
			if err := r.scheduler.SubmitJobWait(ctx, NewJob(id, r.config.MaxRetries)); err != nil {
				return queued, err
			}
			queued++
		}
		if len(ids) < r.config.BatchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	r.logger.Info("Reconciliation sweep queued", zap.Int("wallets", queued))
	return queued, nil
}

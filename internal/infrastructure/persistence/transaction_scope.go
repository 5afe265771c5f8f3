package persistence

import (
	"context"

	"github.com/harvestplace/backend/internal/application/unitofwork"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/harvestplace/backend/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope runs fulfillment work in one GORM transaction
type GormTransactionScope struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// NewGormTransactionScope creates a scope. Events appended to the outbox are
// encoded with serializer.
func NewGormTransactionScope(db *gorm.DB, serializer *event.EventSerializer) *GormTransactionScope {
	return &GormTransactionScope{db: db, serializer: serializer}
}

// Execute commits when fn returns nil and rolls back otherwise
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos unitofwork.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, serializer: s.serializer})
	})
}

type gormTransactionalRepositories struct {
	tx         *gorm.DB
	serializer *event.EventSerializer
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Wallets() finance.WalletRepository {
	return NewGormWalletRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() finance.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Outbox() shared.OutboxWriter {
	return event.NewOutboxWriter(r.tx, r.serializer)
}

var (
	_ unitofwork.TransactionScope          = (*GormTransactionScope)(nil)
	_ unitofwork.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)

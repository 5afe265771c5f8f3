// Package unitofwork defines the transactional boundary used by the
// fulfillment use cases. Everything handed to a TransactionScope callback
// shares one database transaction and commits or rolls back as a whole.
package unitofwork

import (
	"context"

	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the fulfillment repositories.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// Products returns the product repository (stock writes, row locks)
	Products() catalog.ProductRepository
	// Wallets returns the wallet repository
	Wallets() finance.WalletRepository
	// Transactions returns the append-only ledger repository
	Transactions() finance.TransactionRepository
	// Orders returns the order repository
	Orders() trade.OrderRepository
	// Outbox returns the writer that stores domain events with the transaction
	Outbox() shared.OutboxWriter
}

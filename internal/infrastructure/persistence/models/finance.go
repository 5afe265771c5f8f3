package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WalletModel is the persistence model for Wallet
type WalletModel struct {
	AggregateModel
	UserID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Balance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (WalletModel) TableName() string {
	return "wallets"
}

// ToDomain converts the persistence model to a domain Wallet
func (m *WalletModel) ToDomain() *finance.Wallet {
	return &finance.Wallet{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		Balance:           m.Balance,
	}
}

// FromDomain populates the persistence model from a domain Wallet
func (m *WalletModel) FromDomain(w *finance.Wallet) {
	m.FromDomainAggregateRoot(w.BaseAggregateRoot)
	m.UserID = w.UserID
	m.Balance = w.Balance
}

// WalletTransactionModel is the persistence model for a ledger entry.
// Rows are insert-only.
type WalletTransactionModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey"`
	WalletID      uuid.UUID               `gorm:"type:uuid;not null;index:idx_wallet_tx_wallet_created,priority:1"`
	Kind          finance.TransactionKind `gorm:"column:transaction_type;type:varchar(10);not null"`
	Amount        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Description   string                  `gorm:"type:varchar(255);not null"`
	Reference     *uuid.UUID              `gorm:"type:uuid;index"`
	CreatedAt     time.Time               `gorm:"not null;index:idx_wallet_tx_wallet_created,priority:2"`
}

// TableName returns the table name for GORM
func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *WalletTransactionModel) ToDomain() *finance.Transaction {
	return &finance.Transaction{
		BaseEntity:    shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.CreatedAt},
		WalletID:      m.WalletID,
		Kind:          m.Kind,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Description:   m.Description,
		Reference:     m.Reference,
	}
}

// FromDomain populates the persistence model from a domain Transaction
func (m *WalletTransactionModel) FromDomain(t *finance.Transaction) {
	m.ID = t.ID
	m.WalletID = t.WalletID
	m.Kind = t.Kind
	m.Amount = t.Amount
	m.BalanceBefore = t.BalanceBefore
	m.BalanceAfter = t.BalanceAfter
	m.Description = t.Description
	m.Reference = t.Reference
	m.CreatedAt = t.CreatedAt
}

package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a ledger entry
type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "CREDIT"
	TransactionKindDebit  TransactionKind = "DEBIT"
)

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is valid
func (k TransactionKind) IsValid() bool {
	return k == TransactionKindCredit || k == TransactionKindDebit
}

// Transaction is an immutable ledger entry. Amount is always positive; the
// direction comes from Kind. Corrections are made with new entries, never by
// editing or deleting an existing one.
type Transaction struct {
	shared.BaseEntity
	WalletID      uuid.UUID
	Kind          TransactionKind
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	Reference     *uuid.UUID // order the entry belongs to, if any
}

func newTransaction(walletID uuid.UUID, kind TransactionKind, amount, before, after decimal.Decimal, description string) *Transaction {
	return &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		WalletID:      walletID,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
	}
}

// WithReference tags the entry with the order it belongs to
func (t *Transaction) WithReference(ref uuid.UUID) *Transaction {
	t.Reference = &ref
	return t
}

// SignedAmount returns the amount with sign applied: positive for credits,
// negative for debits
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == TransactionKindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsCredit returns true for credit entries
func (t *Transaction) IsCredit() bool {
	return t.Kind == TransactionKindCredit
}

// IsDebit returns true for debit entries
func (t *Transaction) IsDebit() bool {
	return t.Kind == TransactionKindDebit
}

// SumSigned returns the sum of signed amounts of the given entries
func SumSigned(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for i := range txs {
		sum = sum.Add(txs[i].SignedAmount())
	}
	return sum
}

// ReconciliationResult compares a wallet balance with its ledger
type ReconciliationResult struct {
	WalletID    uuid.UUID
	Balance     decimal.Decimal
	LedgerTotal decimal.Decimal
	EntryCount  int64
	CheckedAt   time.Time
}

// Balanced reports whether the balance equals the ledger total
func (r ReconciliationResult) Balanced() bool {
	return r.Balance.Equal(r.LedgerTotal)
}

// Difference returns balance minus ledger total
func (r ReconciliationResult) Difference() decimal.Decimal {
	return r.Balance.Sub(r.LedgerTotal)
}

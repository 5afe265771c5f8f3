package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places money is stored with.
// Amounts with more precision are rejected rather than rounded so that
// ledger sums stay exact.
const AmountScale = 4

// Default descriptions used when the caller does not supply one
const (
	DefaultCreditDescription = "Credit"
	DefaultDebitDescription  = "Debit"
)

// Wallet is a user's stored balance. One wallet exists per user and it is
// created lazily the first time the user is seen by the ledger.
// Balance is only ever changed through Credit and Debit, each of which
// yields the Transaction that must be appended in the same unit of work.
type Wallet struct {
	shared.BaseAggregateRoot
	UserID  uuid.UUID
	Balance decimal.Decimal
}

// NewWallet creates an empty wallet for a user
func NewWallet(userID uuid.UUID) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Wallet owner cannot be empty")
	}
	return &Wallet{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Balance:           decimal.Zero,
	}, nil
}

// ValidateAmount checks that amount is strictly positive and representable
// at AmountScale
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Amount must be positive")
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Amount cannot have more than %d decimal places", AmountScale))
	}
	return nil
}

// CanAfford reports whether the balance covers amount
func (w *Wallet) CanAfford(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// Credit adds amount to the balance and returns the ledger entry recording it
func (w *Wallet) Credit(amount decimal.Decimal, description string) (*Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = DefaultCreditDescription
	}
	before := w.Balance
	w.Balance = w.Balance.Add(amount)
	w.touch()
	return newTransaction(w.ID, TransactionKindCredit, amount, before, w.Balance, description), nil
}

// Debit removes amount from the balance and returns the ledger entry
// recording it. The balance is left untouched when it does not cover amount.
func (w *Wallet) Debit(amount decimal.Decimal, description string) (*Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !w.CanAfford(amount) {
		return nil, shared.NewDomainError(shared.CodeInsufficientFunds,
			fmt.Sprintf("Insufficient wallet balance: required %s, available %s", amount, w.Balance))
	}
	if description == "" {
		description = DefaultDebitDescription
	}
	before := w.Balance
	w.Balance = w.Balance.Sub(amount)
	w.touch()
	return newTransaction(w.ID, TransactionKindDebit, amount, before, w.Balance, description), nil
}

func (w *Wallet) touch() {
	w.Bump(time.Now())
}

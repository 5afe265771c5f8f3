package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// ==================== Wallet DTOs ====================

// DepositRequest represents a request to add funds to the caller's wallet
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required" example:"25.50"`
}

// WalletResponse represents a wallet with its recent ledger entries
type WalletResponse struct {
	ID           uuid.UUID             `json:"id"`
	UserID       uuid.UUID             `json:"user_id"`
	Balance      decimal.Decimal       `json:"balance" example:"474.50"`
	Transactions []TransactionResponse `json:"transactions"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TransactionResponse represents a single ledger entry
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Kind          string          `json:"transaction_type"`
	Amount        decimal.Decimal `json:"amount" example:"25.50"`
	BalanceBefore decimal.Decimal `json:"balance_before" example:"500.00"`
	BalanceAfter  decimal.Decimal `json:"balance_after" example:"474.50"`
	Description   string          `json:"description"`
	Reference     *uuid.UUID      `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DepositResponse is returned after a deposit
type DepositResponse struct {
	Detail      string              `json:"detail"`
	Balance     decimal.Decimal     `json:"balance" example:"474.50"`
	Transaction TransactionResponse `json:"transaction"`
}

// ReconciliationResponse reports whether a wallet balance matches its ledger
type ReconciliationResponse struct {
	WalletID    uuid.UUID       `json:"wallet_id"`
	Balance     decimal.Decimal `json:"balance" example:"474.50"`
	LedgerTotal decimal.Decimal `json:"ledger_total" example:"474.50"`
	EntryCount  int64           `json:"entry_count"`
	Balanced    bool            `json:"balanced"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// ToWalletResponse converts a domain wallet to a response DTO
func ToWalletResponse(w *finance.Wallet, txs []finance.Transaction) WalletResponse {
	return WalletResponse{
		ID:           w.ID,
		UserID:       w.UserID,
		Balance:      w.Balance,
		Transactions: ToTransactionResponses(txs),
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

// ToTransactionResponse converts a ledger entry to a response DTO
func ToTransactionResponse(tx *finance.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		Kind:          tx.Kind.String(),
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Description:   tx.Description,
		Reference:     tx.Reference,
		CreatedAt:     tx.CreatedAt,
	}
}

// ToTransactionResponses converts a list of ledger entries
func ToTransactionResponses(txs []finance.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txs))
	for i := range txs {
		responses[i] = ToTransactionResponse(&txs[i])
	}
	return responses
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/harvestplace/backend/internal/application/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/interfaces/http/dto"
	"github.com/harvestplace/backend/internal/interfaces/http/middleware"
)

// WalletService is the wallet use-case surface the handler depends on
type WalletService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*financeapp.WalletResponse, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[financeapp.TransactionResponse], error)
	Deposit(ctx context.Context, userID uuid.UUID, req financeapp.DepositRequest) (*financeapp.DepositResponse, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*financeapp.ReconciliationResponse, error)
}

// WalletHandler serves the caller's own wallet
type WalletHandler struct {
	BaseHandler
	wallets WalletService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(wallets WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetWallet handles GET /wallet
//
// @ID           getWallet
// @Summary      Get the caller's wallet
// @Description  Balance and the most recent ledger entries. The wallet is created on first use.
// @Tags         wallet
// @Produce      json
// @Success      200 {object} dto.Response{data=financeapp.WalletResponse}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	wallet, err := h.wallets.GetWallet(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wallet)
}

// ListTransactions handles GET /wallet/transactions
//
// @ID           listWalletTransactions
// @Summary      List ledger entries
// @Tags         wallet
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]financeapp.TransactionResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}
	page, err := h.wallets.ListTransactions(c.Request.Context(), actor.UserID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, dto.NewPaginatedResponse(page))
}

// Deposit handles POST /wallet/deposit
//
// @ID           depositToWallet
// @Summary      Deposit funds
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request body financeapp.DepositRequest true "Deposit amount"
// @Success      200 {object} dto.Response{data=financeapp.DepositResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /wallet/deposit [post]
func (h *WalletHandler) Deposit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req financeapp.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resp, err := h.wallets.Deposit(c.Request.Context(), actor.UserID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reconcile handles GET /wallet/reconcile
//
// @ID           reconcileWallet
// @Summary      Check the balance against the ledger
// @Tags         wallet
// @Produce      json
// @Success      200 {object} dto.Response{data=financeapp.ReconciliationResponse}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /wallet/reconcile [get]
func (h *WalletHandler) Reconcile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	result, err := h.wallets.Reconcile(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

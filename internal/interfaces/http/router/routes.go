package router

import (
	"github.com/harvestplace/backend/internal/interfaces/http/handler"
	"github.com/harvestplace/backend/internal/interfaces/http/middleware"
)

// OrderRoutes mounts the order endpoints. Buyers place, list and cancel
// their own orders; staff move orders through fulfillment.
func OrderRoutes(h *handler.OrderHandler) *DomainGroup {
	return NewDomainGroup("orders", "/orders").
		POST("", middleware.RequireBuyer(), h.PlaceOrder).
		GET("", h.ListOrders).
		GET("/:id", h.GetOrder).
		POST("/:id/cancel", middleware.RequireBuyer(), h.CancelOrder).
		PATCH("/:id/status", middleware.RequireStaff(), h.UpdateOrderStatus)
}

// WalletRoutes mounts the caller's wallet endpoints
func WalletRoutes(h *handler.WalletHandler) *DomainGroup {
	return NewDomainGroup("wallet", "/wallet").
		GET("", h.GetWallet).
		GET("/transactions", h.ListTransactions).
		POST("/deposit", h.Deposit).
		GET("/reconcile", h.Reconcile)
}

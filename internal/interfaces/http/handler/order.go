package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tradeapp "github.com/harvestplace/backend/internal/application/trade"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/interfaces/http/dto"
	"github.com/harvestplace/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader lets a client retry order placement safely
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the header value
const maxIdempotencyKeyLength = 128

// ReplayedHeader is set on a placement response served from an earlier
// request with the same idempotency key
const ReplayedHeader = "Idempotent-Replayed"

// OrderService is the order use-case surface the handler depends on
type OrderService interface {
	PlaceOrder(ctx context.Context, req tradeapp.PlaceOrderRequest) (*tradeapp.PlaceOrderResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, requester identity.Actor) (*tradeapp.OrderResponse, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, actor identity.Actor, req tradeapp.UpdateOrderStatusRequest) (*tradeapp.OrderResponse, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor identity.Actor) (*tradeapp.OrderResponse, error)
	ListOrders(ctx context.Context, actor identity.Actor, filter shared.Filter) (shared.Paginated[tradeapp.OrderResponse], error)
}

// OrderHandler handles order API endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// PlaceOrder handles POST /orders. Prices and totals come from the catalog;
// only product ids and quantities are read from the body.
//
// @ID           placeOrder
// @Summary      Place an order
// @Description  Reserve stock, debit the buyer and credit each farmer in one transaction. A repeated Idempotency-Key returns the first order with 200.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client key for safe retries" maxlength(128)
// @Param        request body tradeapp.PlaceOrderInput true "Order lines"
// @Success      201 {object} dto.Response{data=tradeapp.OrderResponse}
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse} "Replayed"
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input tradeapp.PlaceOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key is too long")
		return
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), tradeapp.PlaceOrderRequest{
		Buyer:          actor,
		Items:          input.Items,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header(ReplayedHeader, "true")
		h.Success(c, result.Order)
		return
	}
	h.Created(c, result.Order)
}

// ListOrders handles GET /orders
//
// @ID           listOrders
// @Summary      List orders
// @Description  The caller's own orders, newest first
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]tradeapp.OrderResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	page, err := h.orders.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, dto.NewPaginatedResponse(page))
}

// GetOrder handles GET /orders/:id
//
// @ID           getOrder
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// CancelOrder handles POST /orders/:id/cancel
//
// @ID           cancelOrder
// @Summary      Cancel a pending order
// @Description  Refund the buyer, reverse each farmer credit and restore stock
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// UpdateOrderStatus handles PATCH /orders/:id/status
//
// @ID           updateOrderStatus
// @Summary      Move an order through fulfillment
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.UpdateOrderStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req tradeapp.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}


package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// PlaceOrderItemInput represents one line of an order request.
// Any price or total a client sends is ignored.
type PlaceOrderItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required" example:"2"`
}

// PlaceOrderInput is the HTTP body of an order request
type PlaceOrderInput struct {
	Items []PlaceOrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	Buyer          identity.Actor
	Items          []PlaceOrderItemInput
	IdempotencyKey string
}

// UpdateOrderStatusRequest represents a staff request to move an order
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product"`
	ProductName string          `json:"product_name"`
	FarmerID    uuid.UUID       `json:"farmer_id"`
	Quantity    decimal.Decimal `json:"quantity" example:"2"`
	Price       decimal.Decimal `json:"price" example:"100.00"`
	Subtotal    decimal.Decimal `json:"subtotal" example:"200.00"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	BuyerID     uuid.UUID           `json:"buyer"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount" example:"200.00"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty"`
	ShippedAt   *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
	CanceledAt  *time.Time          `json:"canceled_at,omitempty"`
	Version     int                 `json:"version"`
}

// PlaceOrderResult wraps the created order and whether it was replayed
// from an earlier request with the same idempotency key
type PlaceOrderResult struct {
	Order    OrderResponse
	Replayed bool
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			FarmerID:    item.FarmerID,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal(),
		}
	}
	return OrderResponse{
		ID:          o.ID,
		BuyerID:     o.BuyerID,
		Status:      o.Status.String(),
		TotalAmount: o.TotalAmount,
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		ProcessedAt: o.ProcessedAt,
		ShippedAt:   o.ShippedAt,
		DeliveredAt: o.DeliveredAt,
		CanceledAt:  o.CanceledAt,
		Version:     o.Version,
	}
}

// ToOrderResponses converts a list of orders
func ToOrderResponses(orders []trade.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}

package trade

import (
	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced        = "OrderPlaced"
	EventTypeOrderCanceled      = "OrderCanceled"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderItemInfo represents item information for events
type OrderItemInfo struct {
	ProductID uuid.UUID       `json:"product_id"`
	FarmerID  uuid.UUID       `json:"farmer_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func itemInfos(items []OrderItem) []OrderItemInfo {
	infos := make([]OrderItemInfo, len(items))
	for i, item := range items {
		infos[i] = OrderItemInfo{
			ProductID: item.ProductID,
			FarmerID:  item.FarmerID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return infos
}

// OrderPlacedEvent is raised when an order has been paid for and stock reserved
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemInfo `json:"items"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(order *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		BuyerID:         order.BuyerID,
		TotalAmount:     order.TotalAmount,
		Items:           itemInfos(order.Items),
	}
}

// EventType returns the event type name
func (e *OrderPlacedEvent) EventType() string {
	return EventTypeOrderPlaced
}

// OrderCanceledEvent is raised when a pending order is canceled and its
// stock and money returned
type OrderCanceledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	BuyerID      uuid.UUID       `json:"buyer_id"`
	CanceledBy   uuid.UUID       `json:"canceled_by"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Items        []OrderItemInfo `json:"items"`
}

// NewOrderCanceledEvent creates a new OrderCanceledEvent
func NewOrderCanceledEvent(order *Order, canceledBy uuid.UUID) *OrderCanceledEvent {
	return &OrderCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCanceled, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		BuyerID:         order.BuyerID,
		CanceledBy:      canceledBy,
		RefundAmount:    order.TotalAmount,
		Items:           itemInfos(order.Items),
	}
}

// EventType returns the event type name
func (e *OrderCanceledEvent) EventType() string {
	return EventTypeOrderCanceled
}

// OrderStatusChangedEvent is raised when staff move an order along the
// fulfillment path
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID   `json:"order_id"`
	BuyerID    uuid.UUID   `json:"buyer_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	ChangedBy  uuid.UUID   `json:"changed_by"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, from OrderStatus, changedBy uuid.UUID) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		BuyerID:         order.BuyerID,
		FromStatus:      from,
		ToStatus:        order.Status,
		ChangedBy:       changedBy,
	}
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return EventTypeOrderStatusChanged
}

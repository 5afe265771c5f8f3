package trade

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for delivered and canceled
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// CanTransitionTo checks if the status can transition to the target status.
// Cancellation is only possible while the order is still pending.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusCanceled
	case OrderStatusProcessing:
		return target == OrderStatusShipped
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCanceled:
		return false // Terminal states
	}
	return false
}

// ParseOrderStatus parses a status name case-insensitively.
// "cancelled" is accepted as an alias of canceled.
func ParseOrderStatus(s string) (OrderStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "cancelled" {
		v = string(OrderStatusCanceled)
	}
	status := OrderStatus(v)
	if !status.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown order status %q", s))
	}
	return status, nil
}

// OrderItem is one purchased product within an order. Price, product name
// and seller are snapshots taken when the order was placed.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	FarmerID    uuid.UUID
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	CreatedAt   time.Time
}

// Subtotal returns price * quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

// SellerAmount is the share of an order owed to one seller
type SellerAmount struct {
	FarmerID uuid.UUID
	Amount   decimal.Decimal
}

// Order is a buyer's multi-item purchase.
// It is the aggregate root for order fulfillment.
type Order struct {
	shared.BaseAggregateRoot
	BuyerID     uuid.UUID
	Status      OrderStatus
	TotalAmount decimal.Decimal
	Items       []OrderItem
	ProcessedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CanceledAt  *time.Time
}

// NewOrder builds a pending order for the buyer from normalized line items,
// capturing each product's current price. The total is always computed here
// from those prices; nothing client-supplied is trusted. Callers are
// expected to have run Validate first.
func NewOrder(buyerID uuid.UUID, lines []LineItem, products map[uuid.UUID]*catalog.Product) (*Order, error) {
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must have a buyer")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must have at least one item")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BuyerID:           buyerID,
		Status:            OrderStatusPending,
		TotalAmount:       decimal.Zero,
		Items:             make([]OrderItem, 0, len(lines)),
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, productNotFound(line.ProductID)
		}
		item := OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			FarmerID:    product.FarmerID,
			Quantity:    line.Quantity,
			Price:       product.Price,
			CreatedAt:   order.CreatedAt,
		}
		order.Items = append(order.Items, item)
		order.TotalAmount = order.TotalAmount.Add(item.Subtotal())
	}

	order.RecordEvent(NewOrderPlacedEvent(order))
	return order, nil
}

// IsOwnedBy reports whether the user placed this order
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.BuyerID == userID
}

// CanBeViewedBy reports whether the actor may read this order
func (o *Order) CanBeViewedBy(actor identity.Actor) bool {
	return o.IsOwnedBy(actor.UserID) || actor.CanViewAnyOrder()
}

// Cancel moves a pending order to canceled. Only the buyer may cancel.
// The caller is responsible for the compensating stock and ledger entries.
func (o *Order) Cancel(requester identity.Actor) error {
	if !o.IsOwnedBy(requester.UserID) {
		return shared.NewDomainError(shared.CodeForbidden, "Only the buyer can cancel this order")
	}
	if !o.Status.CanTransitionTo(OrderStatusCanceled) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCanceled
	o.CanceledAt = &now
	o.Bump(now)

	o.RecordEvent(NewOrderCanceledEvent(o, requester.UserID))
	return nil
}

// TransitionTo advances the order along the fulfillment path on behalf of
// staff. Cancellation is not reachable here because it needs compensation.
func (o *Order) TransitionTo(actor identity.Actor, target OrderStatus) error {
	if !actor.CanManageOrderStatus() {
		return shared.NewDomainError(shared.CodeForbidden, "Only staff can update order status")
	}
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown order status %q", target))
	}
	if target == OrderStatusCanceled {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Orders can only be canceled by the buyer through cancellation")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}

	from := o.Status
	now := time.Now()
	o.Status = target
	o.Bump(now)
	switch target {
	case OrderStatusProcessing:
		o.ProcessedAt = &now
	case OrderStatusShipped:
		o.ShippedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	}

	o.RecordEvent(NewOrderStatusChangedEvent(o, from, actor.UserID))
	return nil
}

// SellerTotals groups item subtotals by seller, ordered by seller id so that
// wallets are always locked in the same order
func (o *Order) SellerTotals() []SellerAmount {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range o.Items {
		totals[item.FarmerID] = totals[item.FarmerID].Add(item.Subtotal())
	}
	result := make([]SellerAmount, 0, len(totals))
	for farmerID, amount := range totals {
		result = append(result, SellerAmount{FarmerID: farmerID, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].FarmerID[:], result[j].FarmerID[:]) < 0
	})
	return result
}

// VerifyTotal checks that the total equals the sum of item subtotals
func (o *Order) VerifyTotal() error {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal())
	}
	if !sum.Equal(o.TotalAmount) {
		return fmt.Errorf("order %s total %s does not match items %s", o.ID, o.TotalAmount, sum)
	}
	return nil
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}

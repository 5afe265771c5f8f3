package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	AggregateModel
	BuyerID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_orders_buyer_created,priority:1"`
	Status      trade.OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	TotalAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Items       []OrderItemModel  `gorm:"foreignKey:OrderID;references:ID"`
	ProcessedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CanceledAt  *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BuyerID:           m.BuyerID,
		Status:            m.Status,
		TotalAmount:       m.TotalAmount,
		Items:             make([]trade.OrderItem, len(m.Items)),
		ProcessedAt:       m.ProcessedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CanceledAt:        m.CanceledAt,
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.BuyerID = o.BuyerID
	m.Status = o.Status
	m.TotalAmount = o.TotalAmount
	m.ProcessedAt = o.ProcessedAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CanceledAt = o.CanceledAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(&o.Items[i])
	}
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	FarmerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		FarmerID:    m.FarmerID,
		Quantity:    m.Quantity,
		Price:       m.Price,
		CreatedAt:   m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderItem
func (m *OrderItemModel) FromDomain(item *trade.OrderItem) {
	m.ID = item.ID
	m.OrderID = item.OrderID
	m.ProductID = item.ProductID
	m.ProductName = item.ProductName
	m.FarmerID = item.FarmerID
	m.Quantity = item.Quantity
	m.Price = item.Price
	m.CreatedAt = item.CreatedAt
}

package event

import (
	"context"

	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// OrderEventLogger writes an audit log line for every relayed order event
type OrderEventLogger struct {
	logger *zap.Logger
}

func NewOrderEventLogger(logger *zap.Logger) *OrderEventLogger {
	return &OrderEventLogger{logger: logger.Named("order-events")}
}

func (h *OrderEventLogger) EventTypes() []string {
	return []string{
		trade.EventTypeOrderPlaced,
		trade.EventTypeOrderCanceled,
		trade.EventTypeOrderStatusChanged,
	}
}

func (h *OrderEventLogger) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("order_id", event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *trade.OrderPlacedEvent:
		h.logger.Info("order placed", append(fields,
			zap.String("buyer_id", e.BuyerID.String()),
			zap.String("total_amount", e.TotalAmount.String()),
			zap.Int("items", len(e.Items)),
		)...)
	case *trade.OrderCanceledEvent:
		h.logger.Info("order canceled", append(fields,
			zap.String("canceled_by", e.CanceledBy.String()),
			zap.String("refund_amount", e.RefundAmount.String()),
		)...)
	case *trade.OrderStatusChangedEvent:
		h.logger.Info("order status changed", append(fields,
			zap.String("from", e.FromStatus.String()),
			zap.String("to", e.ToStatus.String()),
			zap.String("changed_by", e.ChangedBy.String()),
		)...)
	default:
		h.logger.Debug("unhandled order event", append(fields, zap.String("event_type", event.EventType()))...)
	}
	return nil
}

var _ shared.EventHandler = (*OrderEventLogger)(nil)

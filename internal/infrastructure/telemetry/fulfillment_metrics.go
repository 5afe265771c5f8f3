package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MeterName is the instrumentation scope of the fulfillment metrics
const MeterName = "harvestplace/fulfillment"

// Metric attribute keys
const (
	AttrReason    = attribute.Key("reason")
	AttrOperation = attribute.Key("operation")
	AttrKind      = attribute.Key("kind")
	AttrStatus    = attribute.Key("status")
	AttrOutcome   = attribute.Key("outcome")
)

// StockLevelProvider counts active products whose stock is at or below a threshold
type StockLevelProvider interface {
	CountLowStock(ctx context.Context, threshold decimal.Decimal) (int64, error)
}

// FulfillmentMetricsConfig configures FulfillmentMetrics
type FulfillmentMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	StockProvider     StockLevelProvider
	LowStockThreshold decimal.Decimal
}

// FulfillmentMetrics records order and ledger activity after commit
type FulfillmentMetrics struct {
	logger *zap.Logger

	ordersPlaced   metric.Int64Counter
	ordersCanceled metric.Int64Counter
	ordersRejected metric.Int64Counter
	statusChanges  metric.Int64Counter
	orderAmount    metric.Float64Histogram
	ledgerEntries  metric.Int64Counter
	reconciled     metric.Int64Counter
	lowStock       metric.Int64ObservableGauge
}

// NewFulfillmentMetrics creates the fulfillment instruments on the meter
func NewFulfillmentMetrics(cfg FulfillmentMetricsConfig) (*FulfillmentMetrics, error) {
	if cfg.Meter == nil {
		return nil, errors.New("NewFulfillmentMetrics: meter cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &FulfillmentMetrics{logger: logger}

	var err error
	if m.ordersPlaced, err = cfg.Meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed"), metric.WithUnit("{order}")); err != nil {
		return nil, fmt.Errorf("create orders.placed: %w", err)
	}
	if m.ordersCanceled, err = cfg.Meter.Int64Counter("orders.canceled",
		metric.WithDescription("Orders canceled with compensation"), metric.WithUnit("{order}")); err != nil {
		return nil, fmt.Errorf("create orders.canceled: %w", err)
	}
	if m.ordersRejected, err = cfg.Meter.Int64Counter("orders.rejected",
		metric.WithDescription("Order operations rejected, by reason"), metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("create orders.rejected: %w", err)
	}
	if m.statusChanges, err = cfg.Meter.Int64Counter("orders.status_changes",
		metric.WithDescription("Staff status transitions"), metric.WithUnit("{transition}")); err != nil {
		return nil, fmt.Errorf("create orders.status_changes: %w", err)
	}
	if m.orderAmount, err = cfg.Meter.Float64Histogram("orders.amount",
		metric.WithDescription("Order totals"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000, 10000, 50000)); err != nil {
		return nil, fmt.Errorf("create orders.amount: %w", err)
	}
	if m.ledgerEntries, err = cfg.Meter.Int64Counter("ledger.entries",
		metric.WithDescription("Wallet transactions appended, by kind"), metric.WithUnit("{entry}")); err != nil {
		return nil, fmt.Errorf("create ledger.entries: %w", err)
	}
	if m.reconciled, err = cfg.Meter.Int64Counter("ledger.reconciliations",
		metric.WithDescription("Wallets checked against their ledger, by outcome"), metric.WithUnit("{wallet}")); err != nil {
		return nil, fmt.Errorf("create ledger.reconciliations: %w", err)
	}

	if cfg.StockProvider != nil {
		provider, threshold := cfg.StockProvider, cfg.LowStockThreshold
		m.lowStock, err = cfg.Meter.Int64ObservableGauge("catalog.low_stock_products",
			metric.WithDescription("Active products at or below the low stock threshold"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				count, err := provider.CountLowStock(ctx, threshold)
				if err != nil {
					logger.Warn("failed to count low stock products", zap.Error(err))
					return nil
				}
				o.Observe(count)
				return nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("create catalog.low_stock_products: %w", err)
		}
	}

	return m, nil
}

func (m *FulfillmentMetrics) RecordOrderPlaced(ctx context.Context, amount decimal.Decimal, items int) {
	m.ordersPlaced.Add(ctx, 1)
	m.orderAmount.Record(ctx, amount.InexactFloat64())
}

func (m *FulfillmentMetrics) RecordOrderCanceled(ctx context.Context, amount decimal.Decimal) {
	m.ordersCanceled.Add(ctx, 1)
}

func (m *FulfillmentMetrics) RecordOrderRejected(ctx context.Context, operation, reason string) {
	m.ordersRejected.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation), AttrReason.String(reason)))
}

func (m *FulfillmentMetrics) RecordStatusChanged(ctx context.Context, status string) {
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
}

// RecordLedgerEntries counts committed wallet transactions of one kind
func (m *FulfillmentMetrics) RecordLedgerEntries(ctx context.Context, kind string, count int) {
	if count <= 0 {
		return
	}
	m.ledgerEntries.Add(ctx, int64(count), metric.WithAttributes(AttrKind.String(kind)))
}

// RecordReconciliation counts one wallet checked by the reconciliation sweep
func (m *FulfillmentMetrics) RecordReconciliation(ctx context.Context, balanced bool) {
	outcome := "balanced"
	if !balanced {
		outcome = "drift"
	}
	m.reconciled.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}

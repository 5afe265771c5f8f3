package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	financeapp "github.com/harvestplace/backend/internal/application/finance"
	inventoryapp "github.com/harvestplace/backend/internal/application/inventory"
	"github.com/harvestplace/backend/internal/application/unitofwork"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/harvestplace/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Ledger descriptions written by order placement and cancellation
const (
	descPayment       = "Payment for order %s"
	descSaleProceeds  = "Sale proceeds for order %s"
	descRefund        = "Refund for canceled order %s"
	descSaleReversal  = "Reversal of sale proceeds for canceled order %s"
	idempotencyPrefix = "order"
)

// SetResult is retried with a linear backoff before the claim is given up
const (
	idempotencyResultAttempts = 3
	idempotencyResultBackoff  = 50 * time.Millisecond
)

// FulfillmentRecorder receives business metrics for committed operations
type FulfillmentRecorder interface {
	RecordOrderPlaced(ctx context.Context, amount decimal.Decimal, items int)
	RecordOrderCanceled(ctx context.Context, amount decimal.Decimal)
	RecordOrderRejected(ctx context.Context, operation, reason string)
	RecordStatusChanged(ctx context.Context, status string)
	RecordLedgerEntries(ctx context.Context, kind string, count int)
}

type noopRecorder struct{}

func (noopRecorder) RecordOrderPlaced(context.Context, decimal.Decimal, int) {}
func (noopRecorder) RecordOrderCanceled(context.Context, decimal.Decimal)    {}
func (noopRecorder) RecordOrderRejected(context.Context, string, string)     {}
func (noopRecorder) RecordStatusChanged(context.Context, string)             {}
func (noopRecorder) RecordLedgerEntries(context.Context, string, int)        {}

// OrderOrchestrator is the transactional boundary of order fulfillment.
// Placement and cancellation each run as a single database transaction that
// spans the inventory guard, the ledger and the order aggregate, so either
// every mutation commits or none does.
type OrderOrchestrator struct {
	scope       unitofwork.TransactionScope
	orderRepo   trade.OrderRepository
	guard       *inventoryapp.Guard
	ledger      *financeapp.Ledger
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	recorder    FulfillmentRecorder
	logger      *zap.Logger
}

// NewOrderOrchestrator creates a new OrderOrchestrator
func NewOrderOrchestrator(
	scope unitofwork.TransactionScope,
	orderRepo trade.OrderRepository,
	guard *inventoryapp.Guard,
	ledger *financeapp.Ledger,
	logger *zap.Logger,
) *OrderOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderOrchestrator{
		scope:      scope,
		orderRepo:  orderRepo,
		guard:      guard,
		ledger:     ledger,
		idemConfig: shared.DefaultIdempotencyConfig(),
		recorder:   noopRecorder{},
		logger:     logger,
	}
}

// SetIdempotencyStore enables Idempotency-Key handling for placement
func (s *OrderOrchestrator) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idemConfig = cfg
}

// SetRecorder sets the business metrics recorder
func (s *OrderOrchestrator) SetRecorder(recorder FulfillmentRecorder) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	s.recorder = recorder
}

// PlaceOrder validates the request against live stock and the buyer's
// balance, reserves stock, debits the buyer, credits each seller and stores
// the order as pending, all in one transaction.
func (s *OrderOrchestrator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "trade", "place_order")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, req.Buyer.UserID.String(),
		telemetry.SpanAttrItemsCount, len(req.Items),
	)

	if !req.Buyer.CanBuy() {
		err := shared.NewDomainError(shared.CodeForbidden, "Only farmers and retailers can place orders")
		return nil, s.reject(ctx, span, "place_order", err)
	}

	lines := make([]trade.LineItem, len(req.Items))
	for i, item := range req.Items {
		lines[i] = trade.LineItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	lines, err := trade.NormalizeLines(lines)
	if err != nil {
		return nil, s.reject(ctx, span, "place_order", err)
	}

	idemKey := ""
	if req.IdempotencyKey != "" && s.idempotency != nil && s.idemConfig.Enabled {
		idemKey = fmt.Sprintf("%s:%s:%s", idempotencyPrefix, req.Buyer.UserID, req.IdempotencyKey)
		replay, err := s.claimIdempotencyKey(ctx, idemKey, req.Buyer)
		if err != nil {
			return nil, s.reject(ctx, span, "place_order", err)
		}
		if replay != nil {
			telemetry.SetAttribute(span, telemetry.SpanAttrReplayed, true)
			return replay, nil
		}
	}

	var order *trade.Order
	err = s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		order, err = s.placeInTx(ctx, repos, req.Buyer, lines)
		return err
	})
	if err != nil {
		if idemKey != "" {
			if relErr := s.idempotency.Release(ctx, idemKey); relErr != nil {
				s.logger.Warn("failed to release idempotency key", zap.String("key", idemKey), zap.Error(relErr))
			}
		}
		return nil, s.reject(ctx, span, "place_order", err)
	}

	if idemKey != "" {
		s.recordIdempotencyResult(ctx, idemKey, order.ID)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		telemetry.SpanAttrAmount, order.TotalAmount.String(),
	)
	s.recorder.RecordOrderPlaced(ctx, order.TotalAmount, order.ItemCount())
	s.recorder.RecordLedgerEntries(ctx, finance.TransactionKindDebit.String(), 1)
	s.recorder.RecordLedgerEntries(ctx, finance.TransactionKindCredit.String(), len(order.SellerTotals()))
	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.Int("items", order.ItemCount()),
	)

	return &PlaceOrderResult{Order: ToOrderResponse(order)}, nil
}

func (s *OrderOrchestrator) placeInTx(ctx context.Context, repos unitofwork.TransactionalRepositories, buyer identity.Actor, lines []trade.LineItem) (*trade.Order, error) {
	productIDs := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		productIDs[i] = line.ProductID
	}
	products, err := s.guard.LockProducts(ctx, repos.Products(), productIDs)
	if err != nil {
		return nil, err
	}

	// Lock every wallet this order touches in one ordered pass so two
	// orders between the same users can never wait on each other.
	userIDs := []uuid.UUID{buyer.UserID}
	for _, p := range products {
		userIDs = append(userIDs, p.FarmerID)
	}
	wallets, err := s.ledger.LockWallets(ctx, repos, userIDs)
	if err != nil {
		return nil, err
	}
	buyerWallet := wallets[buyer.UserID]

	total, err := trade.Validate(buyer, lines, products, buyerWallet.Balance)
	if err != nil {
		return nil, err
	}

	order, err := trade.NewOrder(buyer.UserID, lines, products)
	if err != nil {
		return nil, err
	}
	if !order.TotalAmount.Equal(total) {
		return nil, fmt.Errorf("order total %s differs from validated total %s", order.TotalAmount, total)
	}

	for _, line := range lines {
		if err := s.guard.Reserve(ctx, repos.Products(), products[line.ProductID], line.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := s.ledger.Debit(ctx, repos, buyerWallet, order.TotalAmount,
		fmt.Sprintf(descPayment, order.ID), &order.ID); err != nil {
		return nil, err
	}
	for _, share := range order.SellerTotals() {
		if _, err := s.ledger.Credit(ctx, repos, wallets[share.FarmerID], share.Amount,
			fmt.Sprintf(descSaleProceeds, order.ID), &order.ID); err != nil {
			return nil, err
		}
	}

	if err := repos.Orders().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := repos.Outbox().Append(ctx, order.PullEvents()...); err != nil {
		return nil, fmt.Errorf("append order events: %w", err)
	}
	return order, nil
}

// CancelOrder cancels a pending order on behalf of its buyer. In one
// transaction it restores each item's stock, refunds the buyer the order
// total, takes each seller's proceeds back and marks the order canceled.
// Nothing recorded at placement is edited; every reversal is a new entry.
func (s *OrderOrchestrator) CancelOrder(ctx context.Context, orderID uuid.UUID, requester identity.Actor) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "trade", "cancel_order")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrUserID, requester.UserID.String(),
	)

	var order *trade.Order
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		order, err = s.cancelInTx(ctx, repos, orderID, requester)
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, "cancel_order", err)
	}

	s.recorder.RecordOrderCanceled(ctx, order.TotalAmount)
	s.recorder.RecordLedgerEntries(ctx, finance.TransactionKindDebit.String(), len(order.SellerTotals()))
	s.recorder.RecordLedgerEntries(ctx, finance.TransactionKindCredit.String(), 1)
	s.logger.Info("order canceled",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.String("refund_amount", order.TotalAmount.String()),
	)

	response := ToOrderResponse(order)
	return &response, nil
}

func (s *OrderOrchestrator) cancelInTx(ctx context.Context, repos unitofwork.TransactionalRepositories, orderID uuid.UUID, requester identity.Actor) (*trade.Order, error) {
	order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Cancel(requester); err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, len(order.Items))
	for i, item := range order.Items {
		productIDs[i] = item.ProductID
	}
	products, err := s.guard.LockProducts(ctx, repos.Products(), productIDs)
	if err != nil {
		return nil, err
	}

	sellerTotals := order.SellerTotals()
	userIDs := []uuid.UUID{order.BuyerID}
	for _, share := range sellerTotals {
		userIDs = append(userIDs, share.FarmerID)
	}
	wallets, err := s.ledger.LockWallets(ctx, repos, userIDs)
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.guard.Restore(ctx, repos.Products(), products[item.ProductID], item.Quantity, item.Quantity); err != nil {
			return nil, err
		}
	}

	for _, share := range sellerTotals {
		if _, err := s.ledger.Debit(ctx, repos, wallets[share.FarmerID], share.Amount,
			fmt.Sprintf(descSaleReversal, order.ID), &order.ID); err != nil {
			return nil, err
		}
	}
	if _, err := s.ledger.Credit(ctx, repos, wallets[order.BuyerID], order.TotalAmount,
		fmt.Sprintf(descRefund, order.ID), &order.ID); err != nil {
		return nil, err
	}

	if err := repos.Orders().UpdateStatus(ctx, order); err != nil {
		return nil, err
	}
	if err := repos.Outbox().Append(ctx, order.PullEvents()...); err != nil {
		return nil, fmt.Errorf("append order events: %w", err)
	}
	return order, nil
}

// UpdateStatus moves an order along processing, shipped and delivered.
// Only staff may call it; cancellation is not reachable from here.
func (s *OrderOrchestrator) UpdateStatus(ctx context.Context, orderID uuid.UUID, actor identity.Actor, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "trade", "update_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrUserID, actor.UserID.String(),
		telemetry.SpanAttrStatus, req.Status,
	)

	if !actor.CanManageOrderStatus() {
		err := shared.NewDomainError(shared.CodeForbidden, "Only staff can update order status")
		return nil, s.reject(ctx, span, "update_status", err)
	}
	target, err := trade.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, s.reject(ctx, span, "update_status", err)
	}

	var order *trade.Order
	err = s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		order, err = repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.TransitionTo(actor, target); err != nil {
			return err
		}
		if err := repos.Orders().UpdateStatus(ctx, order); err != nil {
			return err
		}
		if err := repos.Outbox().Append(ctx, order.PullEvents()...); err != nil {
			return fmt.Errorf("append order events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, "update_status", err)
	}

	s.recorder.RecordStatusChanged(ctx, order.Status.String())
	s.logger.Info("order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status.String()),
		zap.String("staff_id", actor.UserID.String()),
	)

	response := ToOrderResponse(order)
	return &response, nil
}

// GetOrder returns an order visible to the actor. Orders of other buyers
// are reported as not found.
func (s *OrderOrchestrator) GetOrder(ctx context.Context, orderID uuid.UUID, actor identity.Actor) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeViewedBy(actor) {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Order not found")
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// ListOrders returns the actor's own orders, newest first
func (s *OrderOrchestrator) ListOrders(ctx context.Context, actor identity.Actor, filter shared.Filter) (shared.Paginated[OrderResponse], error) {
	filter = filter.Normalize()
	orders, total, err := s.orderRepo.FindByBuyer(ctx, actor.UserID, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return shared.NewPaginated(ToOrderResponses(orders), total, filter.Page, filter.PageSize), nil
}

// claimIdempotencyKey returns the earlier result for a key that already
// produced an order, claims the key otherwise, and fails with
// DUPLICATE_REQUEST while another request holds it.
func (s *OrderOrchestrator) claimIdempotencyKey(ctx context.Context, key string, buyer identity.Actor) (*PlaceOrderResult, error) {
	if replay, err := s.replay(ctx, key, buyer); replay != nil || err != nil {
		return replay, err
	}

	claimed, err := s.idempotency.MarkProcessed(ctx, key, s.idemConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	// Lost the race: the holder may have just finished
	if replay, err := s.replay(ctx, key, buyer); replay != nil || err != nil {
		return replay, err
	}
	return nil, shared.ErrDuplicateRequest
}

// recordIdempotencyResult attaches the committed order to its key. If the
// store keeps failing the claim is released, since a key left claimed without
// a result answers DUPLICATE_REQUEST until it expires.
func (s *OrderOrchestrator) recordIdempotencyResult(ctx context.Context, key string, orderID uuid.UUID) {
	var err error
retry:
	for attempt := 0; attempt < idempotencyResultAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				break retry
			case <-time.After(idempotencyResultBackoff * time.Duration(attempt)):
			}
		}
		if err = s.idempotency.SetResult(ctx, key, orderID.String(), s.idemConfig.TTL); err == nil {
			return
		}
	}

	s.logger.Error("failed to record idempotency result, releasing key",
		zap.String("key", key),
		zap.String("order_id", orderID.String()),
		zap.Error(err),
	)
	if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
	}
}

func (s *OrderOrchestrator) replay(ctx context.Context, key string, buyer identity.Actor) (*PlaceOrderResult, error) {
	result, err := s.idempotency.GetResult(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if result == "" {
		return nil, nil
	}
	orderID, err := uuid.Parse(result)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency result %q: %w", result, err)
	}
	order, err := s.GetOrder(ctx, orderID, buyer)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order request replayed", zap.String("order_id", orderID.String()))
	return &PlaceOrderResult{Order: *order, Replayed: true}, nil
}

// reject records a failed operation on the span, metrics and log.
// Business rule violations log at info; anything else is an error.
func (s *OrderOrchestrator) reject(ctx context.Context, span trace.Span, operation string, err error) error {
	telemetry.RecordError(span, err)
	reason := "internal"
	if domainErr, ok := shared.IsDomainError(err); ok {
		reason = domainErr.Code
		s.logger.Info("order operation rejected",
			zap.String("operation", operation),
			zap.String("code", domainErr.Code),
			zap.String("reason", domainErr.Message),
		)
	} else {
		s.logger.Error("order operation failed", zap.String("operation", operation), zap.Error(err))
	}
	s.recorder.RecordOrderRejected(ctx, operation, reason)
	return err
}

package handler

import (
	"context"

	"github.com/google/uuid"
	financeapp "github.com/harvestplace/backend/internal/application/finance"
	tradeapp "github.com/harvestplace/backend/internal/application/trade"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/mock"
)

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, req tradeapp.PlaceOrderRequest) (*tradeapp.PlaceOrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.PlaceOrderResult), args.Error(1)
}

func (m *mockOrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, requester identity.Actor) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, orderID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, actor identity.Actor, req tradeapp.UpdateOrderStatusRequest) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, orderID, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *mockOrderService) GetOrder(ctx context.Context, orderID uuid.UUID, actor identity.Actor) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, orderID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *mockOrderService) ListOrders(ctx context.Context, actor identity.Actor, filter shared.Filter) (shared.Paginated[tradeapp.OrderResponse], error) {
	args := m.Called(ctx, actor, filter)
	return args.Get(0).(shared.Paginated[tradeapp.OrderResponse]), args.Error(1)
}

type mockWalletService struct {
	mock.Mock
}

func (m *mockWalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*financeapp.WalletResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.WalletResponse), args.Error(1)
}

func (m *mockWalletService) ListTransactions(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[financeapp.TransactionResponse], error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).(shared.Paginated[financeapp.TransactionResponse]), args.Error(1)
}

func (m *mockWalletService) Deposit(ctx context.Context, userID uuid.UUID, req financeapp.DepositRequest) (*financeapp.DepositResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.DepositResponse), args.Error(1)
}

func (m *mockWalletService) Reconcile(ctx context.Context, userID uuid.UUID) (*financeapp.ReconciliationResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.ReconciliationResponse), args.Error(1)
}

type mockDatabaseProbe struct {
	mock.Mock
}

func (m *mockDatabaseProbe) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDatabaseProbe) Stats() (persistence.ConnectionStats, error) {
	args := m.Called()
	return args.Get(0).(persistence.ConnectionStats), args.Error(1)
}

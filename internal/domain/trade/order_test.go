package trade

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/catalog"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	buyer    identity.Actor
	farmerA  uuid.UUID
	farmerB  uuid.UUID
	products map[uuid.UUID]*catalog.Product
	tomato   *catalog.Product
	maize    *catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		buyer:   identity.NewActor(uuid.New(), identity.RoleRetailer),
		farmerA: uuid.New(),
		farmerB: uuid.New(),
	}
	var err error
	f.tomato, err = catalog.NewProduct(f.farmerA, "Tomatoes", dec("100"), dec("10"))
	require.NoError(t, err)
	f.maize, err = catalog.NewProduct(f.farmerB, "Maize", dec("12.50"), dec("40"))
	require.NoError(t, err)
	f.products = map[uuid.UUID]*catalog.Product{f.tomato.ID: f.tomato, f.maize.ID: f.maize}
	return f
}

func placeOrder(t *testing.T, f *fixture, lines ...LineItem) *Order {
	t.Helper()
	normalized, err := NormalizeLines(lines)
	require.NoError(t, err)
	order, err := NewOrder(f.buyer.UserID, normalized, f.products)
	require.NoError(t, err)
	return order
}

// ==================== OrderStatus ====================

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCanceled, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCanceled, false},
		{OrderStatusDelivered, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusPending, false},
		{OrderStatusCanceled, OrderStatusCanceled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("Shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	s, err = ParseOrderStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCanceled, s)

	_, err = ParseOrderStatus("lost")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

// ==================== Line normalization ====================

func TestNormalizeLines(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("merges repeated products", func(t *testing.T) {
		lines, err := NormalizeLines([]LineItem{
			{ProductID: a, Quantity: dec("1")},
			{ProductID: b, Quantity: dec("2")},
			{ProductID: a, Quantity: dec("0.5")},
		})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		for _, l := range lines {
			if l.ProductID == a {
				assert.True(t, l.Quantity.Equal(dec("1.5")))
			}
		}
	})

	t.Run("sorts by product id", func(t *testing.T) {
		lines, err := NormalizeLines([]LineItem{{ProductID: a, Quantity: dec("1")}, {ProductID: b, Quantity: dec("1")}})
		require.NoError(t, err)
		assert.True(t, lines[0].ProductID.String() < lines[1].ProductID.String())
	})

	tests := []struct {
		name  string
		lines []LineItem
	}{
		{"empty", nil},
		{"nil product", []LineItem{{ProductID: uuid.Nil, Quantity: dec("1")}}},
		{"zero quantity", []LineItem{{ProductID: a, Quantity: decimal.Zero}}},
		{"negative quantity", []LineItem{{ProductID: a, Quantity: dec("-2")}}},
		{"too precise", []LineItem{{ProductID: a, Quantity: dec("0.001")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeLines(tt.lines)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		})
	}
}

// ==================== Validation ====================

func TestValidate(t *testing.T) {
	t.Run("computes total from live prices", func(t *testing.T) {
		f := newFixture(t)
		lines, _ := NormalizeLines([]LineItem{
			{ProductID: f.tomato.ID, Quantity: dec("2")},
			{ProductID: f.maize.ID, Quantity: dec("4")},
		})
		total, err := Validate(f.buyer, lines, f.products, dec("500"))
		require.NoError(t, err)
		assert.True(t, total.Equal(dec("250")))
	})

	t.Run("self purchase is rejected", func(t *testing.T) {
		f := newFixture(t)
		farmer := identity.NewActor(f.farmerA, identity.RoleFarmer)
		lines, _ := NormalizeLines([]LineItem{{ProductID: f.tomato.ID, Quantity: dec("1")}})
		_, err := Validate(farmer, lines, f.products, dec("1000"))
		assert.True(t, errors.Is(err, shared.ErrSelfPurchase))
	})

	t.Run("self purchase wins over stock regardless of line order", func(t *testing.T) {
		f := newFixture(t)
		farmer := identity.NewActor(f.farmerB, identity.RoleFarmer)
		lines, _ := NormalizeLines([]LineItem{
			{ProductID: f.tomato.ID, Quantity: dec("99")},
			{ProductID: f.maize.ID, Quantity: dec("1")},
		})
		_, err := Validate(farmer, lines, f.products, dec("1000000"))
		assert.True(t, errors.Is(err, shared.ErrSelfPurchase))
	})

	t.Run("insufficient stock", func(t *testing.T) {
		f := newFixture(t)
		lines, _ := NormalizeLines([]LineItem{{ProductID: f.tomato.ID, Quantity: dec("11")}})
		_, err := Validate(f.buyer, lines, f.products, dec("5000"))
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture(t)
		lines, _ := NormalizeLines([]LineItem{{ProductID: f.tomato.ID, Quantity: dec("2")}})
		_, err := Validate(f.buyer, lines, f.products, dec("150"))
		assert.True(t, errors.Is(err, shared.ErrInsufficientFunds))
	})

	t.Run("exact balance is enough", func(t *testing.T) {
		f := newFixture(t)
		lines, _ := NormalizeLines([]LineItem{{ProductID: f.tomato.ID, Quantity: dec("2")}})
		_, err := Validate(f.buyer, lines, f.products, dec("200"))
		assert.NoError(t, err)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)
		lines, _ := NormalizeLines([]LineItem{{ProductID: uuid.New(), Quantity: dec("1")}})
		_, err := Validate(f.buyer, lines, f.products, dec("1000"))
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("inactive product", func(t *testing.T) {
		f := newFixture(t)
		f.maize.Deactivate()
		lines, _ := NormalizeLines([]LineItem{{ProductID: f.maize.ID, Quantity: dec("1")}})
		_, err := Validate(f.buyer, lines, f.products, dec("1000"))
		assert.True(t, errors.Is(err, shared.ErrProductInactive))
	})
}

// ==================== Creation ====================

func TestNewOrder(t *testing.T) {
	f := newFixture(t)
	order := placeOrder(t, f,
		LineItem{ProductID: f.tomato.ID, Quantity: dec("2")},
		LineItem{ProductID: f.maize.ID, Quantity: dec("1.5")},
	)

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, f.buyer.UserID, order.BuyerID)
	assert.Equal(t, 2, order.ItemCount())
	assert.True(t, order.TotalAmount.Equal(dec("218.75")))
	require.NoError(t, order.VerifyTotal())

	for _, item := range order.Items {
		assert.Equal(t, order.ID, item.OrderID)
	}

	events := order.PendingEvents()
	require.Len(t, events, 1)
	placed, ok := events[0].(*OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeOrderPlaced, placed.EventType())
	assert.True(t, placed.TotalAmount.Equal(order.TotalAmount))
}

func TestNewOrder_PriceSnapshot(t *testing.T) {
	f := newFixture(t)
	order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("2")})

	f.tomato.Price = dec("999")

	assert.True(t, order.Items[0].Price.Equal(dec("100")))
	assert.True(t, order.TotalAmount.Equal(dec("200")))
}

func TestOrder_SellerTotals(t *testing.T) {
	f := newFixture(t)
	order := placeOrder(t, f,
		LineItem{ProductID: f.tomato.ID, Quantity: dec("2")},
		LineItem{ProductID: f.maize.ID, Quantity: dec("4")},
	)

	totals := order.SellerTotals()
	require.Len(t, totals, 2)
	assert.True(t, totals[0].FarmerID.String() < totals[1].FarmerID.String())

	byFarmer := map[uuid.UUID]decimal.Decimal{}
	sum := decimal.Zero
	for _, s := range totals {
		byFarmer[s.FarmerID] = s.Amount
		sum = sum.Add(s.Amount)
	}
	assert.True(t, byFarmer[f.farmerA].Equal(dec("200")))
	assert.True(t, byFarmer[f.farmerB].Equal(dec("50")))
	assert.True(t, sum.Equal(order.TotalAmount))
}

// ==================== Cancellation ====================

func TestOrder_Cancel(t *testing.T) {
	t.Run("buyer cancels pending order", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})
		order.PullEvents()

		require.NoError(t, order.Cancel(f.buyer))
		assert.Equal(t, OrderStatusCanceled, order.Status)
		assert.NotNil(t, order.CanceledAt)

		events := order.PendingEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrderCanceled, events[0].EventType())
	})

	t.Run("second cancel is an invalid transition", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})
		require.NoError(t, order.Cancel(f.buyer))

		err := order.Cancel(f.buyer)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})

		for _, actor := range []identity.Actor{
			identity.NewActor(uuid.New(), identity.RoleRetailer),
			identity.NewActor(uuid.New(), identity.RoleStaff),
			identity.NewActor(f.farmerA, identity.RoleFarmer),
		} {
			err := order.Cancel(actor)
			assert.True(t, errors.Is(err, shared.ErrForbidden))
		}
		assert.Equal(t, OrderStatusPending, order.Status)
	})

	t.Run("processing orders cannot be canceled", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})
		staff := identity.NewActor(uuid.New(), identity.RoleStaff)
		require.NoError(t, order.TransitionTo(staff, OrderStatusProcessing))

		err := order.Cancel(f.buyer)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})
}

// ==================== Staff status updates ====================

func TestOrder_TransitionTo(t *testing.T) {
	staff := identity.NewActor(uuid.New(), identity.RoleStaff)

	t.Run("walks the fulfillment path", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})
		order.PullEvents()

		require.NoError(t, order.TransitionTo(staff, OrderStatusProcessing))
		require.NoError(t, order.TransitionTo(staff, OrderStatusShipped))
		require.NoError(t, order.TransitionTo(staff, OrderStatusDelivered))

		assert.Equal(t, OrderStatusDelivered, order.Status)
		assert.NotNil(t, order.ProcessedAt)
		assert.NotNil(t, order.ShippedAt)
		assert.NotNil(t, order.DeliveredAt)

		events := order.PendingEvents()
		require.Len(t, events, 3)
		last := events[2].(*OrderStatusChangedEvent)
		assert.Equal(t, OrderStatusShipped, last.FromStatus)
		assert.Equal(t, OrderStatusDelivered, last.ToStatus)
		assert.Equal(t, staff.UserID, last.ChangedBy)
	})

	t.Run("non staff is forbidden", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})

		err := order.TransitionTo(f.buyer, OrderStatusProcessing)
		assert.True(t, errors.Is(err, shared.ErrForbidden))

		err = order.TransitionTo(identity.NewActor(f.farmerA, identity.RoleFarmer), OrderStatusProcessing)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})

	t.Run("skipping a step is rejected", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})

		err := order.TransitionTo(staff, OrderStatusDelivered)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
		assert.Equal(t, OrderStatusPending, order.Status)
	})

	t.Run("cancel is not reachable through status update", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})

		err := order.TransitionTo(staff, OrderStatusCanceled)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})

	t.Run("unknown status is invalid input", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})

		err := order.TransitionTo(staff, OrderStatus("returned"))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestOrder_CanBeViewedBy(t *testing.T) {
	f := newFixture(t)
	order := placeOrder(t, f, LineItem{ProductID: f.tomato.ID, Quantity: dec("1")})

	assert.True(t, order.CanBeViewedBy(f.buyer))
	assert.True(t, order.CanBeViewedBy(identity.NewActor(uuid.New(), identity.RoleStaff)))
	assert.False(t, order.CanBeViewedBy(identity.NewActor(uuid.New(), identity.RoleRetailer)))
}

package commands_test

import (
	"context"
	"testing"
	"time"

	"preorder/internal/adapters/out/memory"
	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/model/schedule"
	"preorder/internal/core/domain/services"
	"preorder/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *order.Order) (kernel.UUID, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(kernel.UUID), args.Error(1)
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, o *order.Order, expectedVersion int64) error {
	args := m.Called(ctx, o, expectedVersion)
	return args.Error(0)
}

func (m *MockOrderRepository) LoadOrder(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListOrdersForOwner(ctx context.Context, ownerID string, statuses ...order.Status) ([]*order.Order, error) {
	args := m.Called(ctx, ownerID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListOrdersInStatus(ctx context.Context, statuses ...order.Status) ([]*order.Order, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

// memoryFactory adapts the in-memory adapter to the command-side factory.
type memoryFactory struct {
	inner ports.UnitOfWorkFactory
}

func (f memoryFactory) Create() commands.OrderUoW {
	return f.inner.Create()
}

func newMemoryFactory() (memoryFactory, *memory.OrderStore) {
	store := memory.NewOrderStore()
	return memoryFactory{inner: memory.NewUnitOfWorkFactory(store, nil, nil)}, store
}

var (
	// monday is a few days before the Thursday pickup whose deadline is
	// Tuesday 2025-11-11 23:59:59 UTC.
	monday    = time.Date(2025, time.November, 10, 9, 0, 0, 0, time.UTC)
	wednesday = time.Date(2025, time.November, 12, 10, 0, 0, 0, time.UTC)
	thursday  = time.Date(2025, time.November, 13, 0, 0, 0, 0, time.UTC)
)

func editWindow() services.EditWindow {
	cfg := schedule.DefaultConfig()
	cfg.Location = time.UTC
	return services.NewEditWindow(schedule.MustNewCalendar(cfg))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(productID, quantity, price string) kernel.LineItem {
	return kernel.MustNewLineItem(productID, "pc", dec(quantity), dec(price))
}

func restoredOrder(t *testing.T, owner string, status order.Status, version int64, items ...kernel.LineItem) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(kernel.NewUUID(), owner, monday.Add(-time.Hour), thursday, 0, items, status, version)
	require.NoError(t, err)
	return o
}

// seedOrder persists a Placed order through the memory adapter and returns it.
func seedOrder(t *testing.T, factory memoryFactory, owner string, createdAt, pickupAt time.Time, items ...kernel.LineItem) *order.Order {
	t.Helper()
	ctx := t.Context()
	o, err := order.NewOrder(owner, createdAt, pickupAt, 0, items)
	require.NoError(t, err)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	_, err = uow.OrderRepository().CreateOrder(ctx, o)
	require.NoError(t, err)
	require.NoError(t, uow.Commit(ctx))
	return o
}

func loadOrder(t *testing.T, factory memoryFactory, id kernel.UUID) *order.Order {
	t.Helper()
	o, err := factory.Create().OrderRepository().LoadOrder(t.Context(), id)
	require.NoError(t, err)
	return o
}

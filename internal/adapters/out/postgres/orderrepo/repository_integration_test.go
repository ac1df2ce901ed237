package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"preorder/internal/adapters/out/postgres/orderrepo"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(ctx context.Context, aggregate *order.Order) {
	m.Called(ctx, aggregate)
}

// OrderRepositoryIntegrationTestSuite provides integration tests for OrderRepository
// using PostgreSQL containers to verify database persistence behavior.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	tracker    *MockAggregateTracker
}

var (
	createdAt = time.Date(2025, time.November, 10, 9, 0, 0, 0, time.UTC)
	pickupAt  = time.Date(2025, time.November, 13, 0, 0, 0, 0, time.UTC)
)

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything).Return()
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) newOrder(owner string, created time.Time, items ...kernel.LineItem) *order.Order {
	o, err := order.NewOrder(owner, created, pickupAt, 0, items)
	suite.Require().NoError(err)
	return o
}

func line(productID, quantity, price string) kernel.LineItem {
	return kernel.MustNewLineItem(productID, "kg", decimal.RequireFromString(quantity), decimal.RequireFromString(price))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestCreateOrder_AssignsIDAndRoundTrips() {
	ctx := context.Background()
	o := suite.newOrder("owner-1", createdAt, line("apples", "1.5", "2.20"), line("pears", "2", "1"))

	id, err := suite.repository.CreateOrder(ctx, o)
	suite.Require().NoError(err)
	suite.False(id.IsZero())
	suite.tracker.AssertCalled(suite.T(), "TrackAggregate", mock.Anything, o)

	loaded, err := suite.repository.LoadOrder(ctx, id)
	suite.Require().NoError(err)
	suite.Equal("owner-1", loaded.OwnerID())
	suite.Equal(order.Placed, loaded.Status())
	suite.Equal(order.InitialVersion, loaded.Version())
	suite.True(loaded.CreatedAt().Equal(createdAt))
	suite.True(loaded.PickupAt().Equal(pickupAt))
	suite.Len(loaded.Items(), 2)
	suite.True(loaded.Quantity("apples").Equal(decimal.RequireFromString("1.5")))
	suite.True(loaded.Total().Equal(decimal.RequireFromString("5.3")))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateOrder_BumpsVersion() {
	ctx := context.Background()
	o := suite.newOrder("owner-1", createdAt, line("apples", "1", "1"))
	_, err := suite.repository.CreateOrder(ctx, o)
	suite.Require().NoError(err)

	suite.Require().NoError(o.ReplaceItems([]kernel.LineItem{line("apples", "3", "1")}))
	suite.Require().NoError(suite.repository.UpdateOrder(ctx, o, 1))
	suite.Equal(int64(2), o.Version())

	loaded, err := suite.repository.LoadOrder(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(int64(2), loaded.Version())
	suite.True(loaded.Quantity("apples").Equal(decimal.NewFromInt(3)))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateOrder_StaleVersionConflicts() {
	ctx := context.Background()
	o := suite.newOrder("owner-1", createdAt, line("apples", "1", "1"))
	_, err := suite.repository.CreateOrder(ctx, o)
	suite.Require().NoError(err)

	first, err := suite.repository.LoadOrder(ctx, o.ID())
	suite.Require().NoError(err)
	second, err := suite.repository.LoadOrder(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(first.Lock())
	suite.Require().NoError(suite.repository.UpdateOrder(ctx, first, 1))

	suite.Require().NoError(second.Cancel())
	err = suite.repository.UpdateOrder(ctx, second, 1)
	suite.Require().ErrorIs(err, errs.ErrVersionConflict)
	suite.Equal(int64(1), second.Version())

	loaded, err := suite.repository.LoadOrder(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Locked, loaded.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateOrder_MissingRow() {
	o, err := order.RestoreOrder(kernel.NewUUID(), "owner-1", createdAt, pickupAt, 0, nil, order.Placed, 1)
	suite.Require().NoError(err)

	err = suite.repository.UpdateOrder(context.Background(), o, 1)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestLoadOrder_NotFound() {
	_, err := suite.repository.LoadOrder(context.Background(), kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestListOrdersForOwner_NewestFirstWithStatusFilter() {
	ctx := context.Background()
	older := suite.newOrder("owner-1", createdAt)
	newer := suite.newOrder("owner-1", createdAt.Add(time.Hour))
	foreign := suite.newOrder("owner-2", createdAt)
	for _, o := range []*order.Order{older, newer, foreign} {
		_, err := suite.repository.CreateOrder(ctx, o)
		suite.Require().NoError(err)
	}
	suite.Require().NoError(older.Cancel())
	suite.Require().NoError(suite.repository.UpdateOrder(ctx, older, 1))

	all, err := suite.repository.ListOrdersForOwner(ctx, "owner-1")
	suite.Require().NoError(err)
	suite.Require().Len(all, 2)
	suite.True(all[0].ID().IsEqual(newer.ID()))
	suite.True(all[1].ID().IsEqual(older.ID()))

	placed, err := suite.repository.ListOrdersForOwner(ctx, "owner-1", order.Placed)
	suite.Require().NoError(err)
	suite.Require().Len(placed, 1)
	suite.True(placed[0].ID().IsEqual(newer.ID()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestListOrdersInStatus_ByPickup() {
	ctx := context.Background()
	later, err := order.NewOrder("owner-1", createdAt, pickupAt.AddDate(0, 0, 7), 0, nil)
	suite.Require().NoError(err)
	sooner := suite.newOrder("owner-2", createdAt)
	for _, o := range []*order.Order{later, sooner} {
		_, err = suite.repository.CreateOrder(ctx, o)
		suite.Require().NoError(err)
	}

	orders, err := suite.repository.ListOrdersInStatus(ctx, order.Placed, order.Locked)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.True(orders[0].ID().IsEqual(sooner.ID()))

	none, err := suite.repository.ListOrdersInStatus(ctx, order.Completed)
	suite.Require().NoError(err)
	suite.Empty(none)
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}

package pgxstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"preorder/internal/adapters/out/pgxstore"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/ports"
	"preorder/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	createdAt = time.Date(2025, time.November, 10, 9, 0, 0, 0, time.UTC)
	pickupAt  = time.Date(2025, time.November, 13, 0, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.OrderChanged
}

func (p *recordingPublisher) Publish(_ context.Context, event ports.OrderChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// StoreIntegrationTestSuite runs the pgx adapter against a real PostgreSQL.
type StoreIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	publisher *recordingPublisher
	factory   *pgxstore.UnitOfWorkFactory
}

func (suite *StoreIntegrationTestSuite) SetupSuite() {
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

	pool, err := pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)
	suite.pool = pool

	suite.Require().NoError(pgxstore.EnsureSchema(ctx, pool))
	suite.Require().NoError(pgxstore.EnsureSchema(ctx, pool), "schema creation is repeatable")
}

func (suite *StoreIntegrationTestSuite) SetupTest() {
	_, err := suite.pool.Exec(context.Background(), "TRUNCATE TABLE orders")
	suite.Require().NoError(err)
	suite.publisher = &recordingPublisher{}
	suite.factory = pgxstore.NewUnitOfWorkFactory(suite.pool, suite.publisher, nil)
}

func (suite *StoreIntegrationTestSuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func line(productID, quantity, price string) kernel.LineItem {
	return kernel.MustNewLineItem(productID, "kg", decimal.RequireFromString(quantity), decimal.RequireFromString(price))
}

func (suite *StoreIntegrationTestSuite) create(owner string, created, pickup time.Time, items ...kernel.LineItem) *order.Order {
	o, err := order.NewOrder(owner, created, pickup, 0, items)
	suite.Require().NoError(err)
	_, err = suite.factory.Create().OrderRepository().CreateOrder(context.Background(), o)
	suite.Require().NoError(err)
	return o
}

func (suite *StoreIntegrationTestSuite) TestCreateAndLoad() {
	o := suite.create("owner-1", createdAt, pickupAt, line("apples", "1.5", "2.20"), line("pears", "2", "1"))

	loaded, err := suite.factory.Create().OrderRepository().LoadOrder(context.Background(), o.ID())
	suite.Require().NoError(err)
	suite.Equal("owner-1", loaded.OwnerID())
	suite.Equal(order.Placed, loaded.Status())
	suite.Equal(order.InitialVersion, loaded.Version())
	suite.True(loaded.PickupAt().Equal(pickupAt))
	suite.True(loaded.Total().Equal(decimal.RequireFromString("5.3")))
	suite.Equal(1, suite.publisher.count())
}

func (suite *StoreIntegrationTestSuite) TestLoadOrder_NotFound() {
	_, err := suite.factory.Create().OrderRepository().LoadOrder(context.Background(), kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *StoreIntegrationTestSuite) TestUpdateOrder_ConditionalOnVersion() {
	ctx := context.Background()
	o := suite.create("owner-1", createdAt, pickupAt, line("apples", "1", "1"))
	repo := suite.factory.Create().OrderRepository()

	stale, err := repo.LoadOrder(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(o.Lock())
	suite.Require().NoError(repo.UpdateOrder(ctx, o, 1))
	suite.Equal(int64(2), o.Version())

	suite.Require().NoError(stale.Cancel())
	err = repo.UpdateOrder(ctx, stale, 1)
	suite.Require().ErrorIs(err, errs.ErrVersionConflict)

	var conflict *errs.VersionConflictError
	suite.Require().True(errors.As(err, &conflict))
	suite.Equal(int64(2), conflict.Actual)
}

func (suite *StoreIntegrationTestSuite) TestUpdateOrder_MissingRow() {
	o, err := order.RestoreOrder(kernel.NewUUID(), "owner-1", createdAt, pickupAt, 0, nil, order.Placed, 1)
	suite.Require().NoError(err)

	err = suite.factory.Create().OrderRepository().UpdateOrder(context.Background(), o, 1)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *StoreIntegrationTestSuite) TestListings() {
	ctx := context.Background()
	older := suite.create("owner-1", createdAt, pickupAt.AddDate(0, 0, 7))
	newer := suite.create("owner-1", createdAt.Add(time.Hour), pickupAt)
	suite.create("owner-2", createdAt, pickupAt.AddDate(0, 0, 14))

	repo := suite.factory.Create().OrderRepository()
	suite.Require().NoError(older.Cancel())
	suite.Require().NoError(repo.UpdateOrder(ctx, older, 1))

	mine, err := repo.ListOrdersForOwner(ctx, "owner-1")
	suite.Require().NoError(err)
	suite.Require().Len(mine, 2)
	suite.True(mine[0].ID().IsEqual(newer.ID()))

	placed, err := repo.ListOrdersForOwner(ctx, "owner-1", order.Placed)
	suite.Require().NoError(err)
	suite.Len(placed, 1)

	open, err := repo.ListOrdersInStatus(ctx, order.Placed)
	suite.Require().NoError(err)
	suite.Require().Len(open, 2)
	suite.True(open[0].ID().IsEqual(newer.ID()))

	all, err := repo.ListOrdersInStatus(ctx)
	suite.Require().NoError(err)
	suite.Len(all, 3)
}

func (suite *StoreIntegrationTestSuite) TestUnitOfWork_CommitPublishesRollbackDiscards() {
	ctx := context.Background()

	committed, err := order.NewOrder("owner-1", createdAt, pickupAt, 0, nil)
	suite.Require().NoError(err)
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	_, err = uow.OrderRepository().CreateOrder(ctx, committed)
	suite.Require().NoError(err)
	suite.Equal(0, suite.publisher.count())
	suite.Require().NoError(uow.Commit(ctx))
	suite.Equal(1, suite.publisher.count())

	discarded, err := order.NewOrder("owner-1", createdAt, pickupAt, 0, nil)
	suite.Require().NoError(err)
	uow = suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	_, err = uow.OrderRepository().CreateOrder(ctx, discarded)
	suite.Require().NoError(err)
	suite.Require().NoError(uow.Rollback(ctx))
	suite.Equal(1, suite.publisher.count())

	_, err = suite.factory.Create().OrderRepository().LoadOrder(ctx, discarded.ID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *StoreIntegrationTestSuite) TestUnitOfWork_RequiresBegin() {
	uow := suite.factory.Create()
	suite.Require().ErrorIs(uow.Commit(context.Background()), pgxstore.ErrNoTransaction)
	suite.Require().ErrorIs(uow.Rollback(context.Background()), pgxstore.ErrNoTransaction)
}

func TestStoreIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	suite.Run(t, new(StoreIntegrationTestSuite))
}

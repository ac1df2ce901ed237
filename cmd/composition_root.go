package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	httpin "preorder/internal/adapters/in/http"
	"preorder/internal/adapters/out/eventbus"
	"preorder/internal/adapters/out/memory"
	"preorder/internal/adapters/out/pgxstore"
	"preorder/internal/adapters/out/postgres"
	"preorder/internal/adapters/out/rabbitmq"
	"preorder/internal/adapters/out/redisfeed"
	"preorder/internal/adapters/out/redissession"
	"preorder/internal/core/application/session"
	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/application/usecases/queries"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/schedule"
	"preorder/internal/core/domain/services"
	"preorder/internal/core/ports"
	"preorder/internal/jobs"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	clock    kernel.Clock
	calendar schedule.Calendar
	window   services.EditWindow

	gormDB     *gorm.DB
	pgxPool    *pgxpool.Pool
	uowFactory ports.UnitOfWorkFactory

	feed         ports.OrderFeed
	sessionStore ports.BasketSessionStore
	sessions     *session.Manager

	closers []func() error
}

// NewCompositionRoot connects every configured backend. Close releases
// them in reverse order.
func NewCompositionRoot(ctx context.Context, cfg Config, logger *slog.Logger) (_ *CompositionRoot, err error) {
	calendar, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}

	c := &CompositionRoot{
		cfg:      cfg,
		logger:   logger,
		clock:    kernel.NewSystemClock(cfg.OffsetDays()),
		calendar: calendar,
		window:   services.NewEditWindow(calendar),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	var publisher eventbus.Fanout
	if err = c.connectNotifications(ctx, &publisher); err != nil {
		return nil, err
	}
	if err = c.connectPersistence(ctx, publisher); err != nil {
		return nil, err
	}

	deadlines := c.CreateSweepDeadlinesCommandHandler()
	stale := c.CreateSweepStaleCompletionsCommandHandler()
	reconcile := c.CreateReconcileBasketCommandHandler()

	// Without a session store an evicted basket is lost, so it lives as
	// long as a stored session would.
	idleTTL := redissession.DefaultTTL
	if c.sessionStore != nil {
		idleTTL = session.DefaultIdleTTL
	}
	c.sessions = session.NewManager(
		session.Policy{AllowsUnauthenticatedBasket: cfg.AllowGuestBasket, IdleTTL: idleTTL},
		session.Dependencies{
			Deadlines: &deadlines,
			Stale:     &stale,
			Reconcile: &reconcile,
			Sessions:  c.sessionStore,
			Feed:      c.feed,
			Clock:     c.clock,
			Logger:    logger,
		},
	)
	return c, nil
}

// connectNotifications picks the order feed and collects the publishers
// that hear about committed order changes.
func (c *CompositionRoot) connectNotifications(ctx context.Context, publisher *eventbus.Fanout) error {
	if c.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(c.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		c.closers = append(c.closers, client.Close)
		if err = client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		feed := redisfeed.NewFeed(client, redisfeed.DefaultKeyPrefix, c.logger)
		*publisher = append(*publisher, feed)
		c.feed = feed
		c.sessionStore = redissession.NewStore(client, redissession.DefaultKeyPrefix, redissession.DefaultTTL)
	} else {
		bus := eventbus.NewBus(eventbus.DefaultBuffer, c.logger)
		*publisher = append(*publisher, bus)
		c.feed = bus
	}

	if c.cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Dial(c.cfg.RabbitMQURL, rabbitmq.DefaultExchange)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, conn.Close)
		*publisher = append(*publisher, rabbitmq.NewPublisher(conn.Channel(), rabbitmq.DefaultExchange, c.logger))
	}
	return nil
}

func (c *CompositionRoot) connectPersistence(ctx context.Context, publisher ports.OrderPublisher) error {
	switch c.cfg.PersistenceDriver {
	case DriverGorm:
		db, err := gorm.Open(postgresdriver.Open(c.cfg.DSN()), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		c.closers = append(c.closers, sqlDB.Close)
		c.gormDB = db
		c.uowFactory = postgres.NewGormUnitOfWorkFactory(db, publisher, c.logger)

	case DriverPgx:
		pool, err := pgxpool.New(ctx, c.cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		c.closers = append(c.closers, func() error {
			pool.Close()
			return nil
		})
		if err = pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		c.pgxPool = pool
		c.uowFactory = pgxstore.NewUnitOfWorkFactory(pool, publisher, c.logger)

	case DriverMemory:
		c.uowFactory = memory.NewUnitOfWorkFactory(memory.NewOrderStore(), publisher, c.logger)

	default:
		return fmt.Errorf("unknown persistence driver %q", c.cfg.PersistenceDriver)
	}
	return nil
}

// Migrate creates or upgrades the orders table of the configured driver.
func (c *CompositionRoot) Migrate(ctx context.Context) error {
	switch {
	case c.gormDB != nil:
		return postgres.Migrate(c.gormDB.WithContext(ctx))
	case c.pgxPool != nil:
		return pgxstore.EnsureSchema(ctx, c.pgxPool)
	default:
		return nil
	}
}

func (c *CompositionRoot) Close() error {
	var errs []error
	if c.sessions != nil {
		c.sessions.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *CompositionRoot) Clock() kernel.Clock {
	return c.clock
}

func (c *CompositionRoot) Sessions() *session.Manager {
	return c.sessions
}

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateCommitBasketCommandHandler() commands.CommitBasketCommandHandler {
	return commands.NewCommitBasketCommandHandler(c.orderUoWFactory(), c.window, c.clock)
}

func (c *CompositionRoot) CreateCancelOrderCommandHandler() commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.orderUoWFactory())
}

func (c *CompositionRoot) CreateReconcileBasketCommandHandler() commands.ReconcileBasketCommandHandler {
	return commands.NewReconcileBasketCommandHandler(c.orderUoWFactory(), c.window)
}

func (c *CompositionRoot) CreateResolveConflictCommandHandler() commands.ResolveConflictCommandHandler {
	return commands.NewResolveConflictCommandHandler(c.orderUoWFactory(), c.window)
}

func (c *CompositionRoot) CreateSweepDeadlinesCommandHandler() commands.SweepDeadlinesCommandHandler {
	return commands.NewSweepDeadlinesCommandHandler(c.orderUoWFactory(), c.window)
}

func (c *CompositionRoot) CreateSweepStaleCompletionsCommandHandler() commands.SweepStaleCompletionsCommandHandler {
	return commands.NewSweepStaleCompletionsCommandHandler(c.orderUoWFactory())
}

// CreateListOrdersQueryHandler reads through a repository outside of any
// transaction.
func (c *CompositionRoot) CreateListOrdersQueryHandler() queries.ListOrdersQueryHandler {
	return queries.NewListOrdersQueryHandler(c.uowFactory.Create().OrderRepository(), c.window)
}

func (c *CompositionRoot) CreateListPickupSlotsQueryHandler() queries.ListPickupSlotsQueryHandler {
	return queries.NewListPickupSlotsQueryHandler(c.calendar)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	deadlines := c.CreateSweepDeadlinesCommandHandler()
	stale := c.CreateSweepStaleCompletionsCommandHandler()
	return jobs.NewJobManager(&deadlines, &stale, c.clock, c.cfg.SweepSchedule, c.logger)
}

func (c *CompositionRoot) CreateHTTPServer() *httpin.Server {
	commit := c.CreateCommitBasketCommandHandler()
	cancel := c.CreateCancelOrderCommandHandler()
	resolve := c.CreateResolveConflictCommandHandler()
	deadlines := c.CreateSweepDeadlinesCommandHandler()
	stale := c.CreateSweepStaleCompletionsCommandHandler()
	listOrders := c.CreateListOrdersQueryHandler()
	pickupSlots := c.CreateListPickupSlotsQueryHandler()

	return httpin.NewServer(httpin.Dependencies{
		Sessions:    c.sessions,
		Commit:      &commit,
		Cancel:      &cancel,
		Resolve:     &resolve,
		Deadlines:   &deadlines,
		Stale:       &stale,
		ListOrders:  listOrders,
		PickupSlots: pickupSlots,
		Window:      c.window,
		Clock:       c.clock,
		Logger:      c.logger,
	})
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

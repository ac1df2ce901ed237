package pgxstore

import (
	"context"
	"errors"
	"log/slog"

	"preorder/internal/adapters/out/tracking"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoTransaction is returned by Commit and Rollback without a prior Begin.
var ErrNoTransaction = errors.New("no active transaction")

type UnitOfWorkFactory struct {
	pool      *pgxpool.Pool
	publisher ports.OrderPublisher
	logger    *slog.Logger
}

// NewUnitOfWorkFactory creates a factory for pgx units of work. publisher
// may be nil.
func NewUnitOfWorkFactory(pool *pgxpool.Pool, publisher ports.OrderPublisher, logger *slog.Logger) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{pool: pool, publisher: publisher, logger: logger}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{
		pool:    f.pool,
		tracker: tracking.NewTracker(f.publisher, f.logger),
	}
}

// UnitOfWork wraps one pgx transaction. Tracked orders are published after
// a successful commit.
type UnitOfWork struct {
	pool    *pgxpool.Pool
	tx      pgx.Tx
	tracker *tracking.Tracker
}

// Begin is a no-op when a transaction is already open.
func (uow *UnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx, err := uow.pool.Begin(ctx)
	if err != nil {
		return err
	}
	uow.tx = tx
	return nil
}

func (uow *UnitOfWork) Commit(ctx context.Context) error {
	if uow.tx == nil {
		return ErrNoTransaction
	}

	err := uow.tx.Commit(ctx)
	uow.tx = nil
	if err != nil {
		uow.tracker.Reset()
		return err
	}

	uow.tracker.PublishAndReset(ctx)
	return nil
}

func (uow *UnitOfWork) Rollback(ctx context.Context) error {
	if uow.tx == nil {
		return ErrNoTransaction
	}

	// The rollback must reach the server even when ctx is already done.
	err := uow.tx.Rollback(context.WithoutCancel(ctx))
	uow.tx = nil
	uow.tracker.Reset()
	return err
}

func (uow *UnitOfWork) OrderRepository() ports.OrderRepository {
	if uow.tx != nil {
		return NewOrderRepository(uow.tx, uow)
	}
	return NewOrderRepository(uow.pool, uow)
}

// TrackAggregate announces writes made outside a transaction at once.
func (uow *UnitOfWork) TrackAggregate(ctx context.Context, aggregate *order.Order) {
	uow.tracker.TrackAggregate(aggregate)
	if uow.tx == nil {
		uow.tracker.PublishAndReset(ctx)
	}
}

var _ ports.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)

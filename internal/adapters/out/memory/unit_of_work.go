package memory

import (
	"context"
	"errors"
	"log/slog"

	"preorder/internal/adapters/out/tracking"
	"preorder/internal/core/ports"
)

// ErrNoTransaction is returned by Commit and Rollback outside of Begin.
var ErrNoTransaction = errors.New("no active transaction")

// UnitOfWorkFactory creates units of work over one OrderStore.
type UnitOfWorkFactory struct {
	store     *OrderStore
	publisher ports.OrderPublisher
	logger    *slog.Logger
}

// NewUnitOfWorkFactory wires a store and an optional publisher.
func NewUnitOfWorkFactory(store *OrderStore, publisher ports.OrderPublisher, logger *slog.Logger) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store, publisher: publisher, logger: logger}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{
		store:   f.store,
		tracker: tracking.NewTracker(f.publisher, f.logger),
	}
}

// UnitOfWork stages writes between Begin and Commit. Outside a transaction
// the repository writes through immediately.
type UnitOfWork struct {
	store   *OrderStore
	tracker *tracking.Tracker

	active bool
	staged []stagedWrite
}

func (uow *UnitOfWork) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if uow.active {
		return nil
	}
	uow.active = true
	uow.staged = nil
	return nil
}

func (uow *UnitOfWork) Commit(ctx context.Context) error {
	if !uow.active {
		return ErrNoTransaction
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	staged := uow.staged
	uow.active = false
	uow.staged = nil

	if err := uow.store.apply(staged); err != nil {
		uow.tracker.Reset()
		return err
	}
	uow.tracker.PublishAndReset(ctx)
	return nil
}

func (uow *UnitOfWork) Rollback(_ context.Context) error {
	if !uow.active {
		return ErrNoTransaction
	}
	uow.active = false
	uow.staged = nil
	uow.tracker.Reset()
	return nil
}

func (uow *UnitOfWork) OrderRepository() ports.OrderRepository {
	return &OrderRepository{uow: uow}
}

// write stages w, or applies it at once outside a transaction.
func (uow *UnitOfWork) write(ctx context.Context, w stagedWrite) error {
	if !uow.active {
		if err := uow.store.apply([]stagedWrite{w}); err != nil {
			return err
		}
		uow.tracker.TrackAggregate(w.order)
		uow.tracker.PublishAndReset(ctx)
		return nil
	}

	for i, existing := range uow.staged {
		if existing.order.ID().IsEqual(w.order.ID()) {
			w.insert = existing.insert
			w.baseVersion = existing.baseVersion
			uow.staged[i] = w
			return nil
		}
	}
	uow.staged = append(uow.staged, w)
	return nil
}

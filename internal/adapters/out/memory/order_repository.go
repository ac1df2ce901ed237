package memory

import (
	"context"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"
)

// OrderRepository is bound to one UnitOfWork. Reads see the unit's own
// staged writes on top of the committed state.
type OrderRepository struct {
	uow *UnitOfWork
}

func (r *OrderRepository) CreateOrder(ctx context.Context, aggregate *order.Order) (kernel.UUID, error) {
	if err := ctx.Err(); err != nil {
		return kernel.UUID{}, err
	}
	if err := aggregate.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if aggregate.ID().IsZero() {
		if err := aggregate.AssignID(kernel.NewUUID()); err != nil {
			return kernel.UUID{}, err
		}
	}

	if err := r.uow.write(ctx, stagedWrite{order: clone(aggregate), insert: true}); err != nil {
		return kernel.UUID{}, err
	}
	if r.uow.active {
		r.uow.tracker.TrackAggregate(aggregate)
	}
	return aggregate.ID(), nil
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, aggregate *order.Order, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := aggregate.Validate(); err != nil {
		return err
	}

	current, err := r.LoadOrder(ctx, aggregate.ID())
	if err != nil {
		return err
	}
	if current.Version() != expectedVersion {
		return errs.NewVersionConflictError("order", aggregate.ID(), expectedVersion, current.Version())
	}

	next := clone(aggregate)
	next.ConfirmUpdate(expectedVersion)
	if err = r.uow.write(ctx, stagedWrite{order: next, baseVersion: expectedVersion}); err != nil {
		return err
	}

	aggregate.ConfirmUpdate(expectedVersion)
	if r.uow.active {
		r.uow.tracker.TrackAggregate(aggregate)
	}
	return nil
}

func (r *OrderRepository) LoadOrder(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o, ok := r.staged(id); ok {
		return o, nil
	}
	if o, ok := r.uow.store.get(id); ok {
		return o, nil
	}
	return nil, errs.NewObjectNotFoundError("orderID", id)
}

func (r *OrderRepository) ListOrdersForOwner(ctx context.Context, ownerID string, statuses ...order.Status) ([]*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*order.Order
	for _, o := range r.view() {
		if o.OwnerID() == ownerID && matchesStatus(o, statuses) {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *OrderRepository) ListOrdersInStatus(ctx context.Context, statuses ...order.Status) ([]*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*order.Order
	for _, o := range r.view() {
		if matchesStatus(o, statuses) {
			out = append(out, o)
		}
	}
	sortByPickup(out)
	return out, nil
}

func (r *OrderRepository) staged(id kernel.UUID) (*order.Order, bool) {
	for _, w := range r.uow.staged {
		if w.order.ID().IsEqual(id) {
			return clone(w.order), true
		}
	}
	return nil, false
}

// view merges committed orders with this unit's staged writes.
func (r *OrderRepository) view() []*order.Order {
	committed := r.uow.store.all()
	out := make([]*order.Order, 0, len(committed)+len(r.uow.staged))
	seen := make(map[kernel.UUID]bool, len(r.uow.staged))
	for _, w := range r.uow.staged {
		out = append(out, clone(w.order))
		seen[w.order.ID()] = true
	}
	for _, o := range committed {
		if !seen[o.ID()] {
			out = append(out, o)
		}
	}
	return out
}

package ports

import (
	"context"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
//
// Updates are conditional: UpdateOrder only succeeds when the stored version
// equals expectedVersion. A mismatch on an existing order returns an error
// matching errs.ErrVersionConflict; an unknown id returns errs.ErrObjectNotFound.
type OrderRepository interface {
	// CreateOrder persists a new order, assigns its id and returns it.
	CreateOrder(ctx context.Context, aggregate *order.Order) (kernel.UUID, error)

	// UpdateOrder writes status and items of an existing order when the stored
	// version equals expectedVersion, then advances the aggregate's version.
	UpdateOrder(ctx context.Context, aggregate *order.Order, expectedVersion int64) error

	// LoadOrder retrieves an order by id.
	LoadOrder(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// ListOrdersForOwner returns the owner's orders in any of the given
	// statuses (all statuses when none are given), newest first.
	ListOrdersForOwner(ctx context.Context, ownerID string, statuses ...order.Status) ([]*order.Order, error)

	// ListOrdersInStatus returns all orders in any of the given statuses,
	// oldest pickup first. Used by sweeps.
	ListOrdersInStatus(ctx context.Context, statuses ...order.Status) ([]*order.Order, error)
}

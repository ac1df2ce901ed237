package ports

import (
	"context"
	"time"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
)

// OrderChanged announces that an order was created or updated. It carries
// no items: subscribers re-read the order through the repository.
type OrderChanged struct {
	OrderID    kernel.UUID
	OwnerID    string
	Status     order.Status
	Version    int64
	OccurredAt time.Time
}

// NewOrderChanged describes the current state of o.
func NewOrderChanged(o *order.Order, occurredAt time.Time) OrderChanged {
	return OrderChanged{
		OrderID:    o.ID(),
		OwnerID:    o.OwnerID(),
		Status:     o.Status(),
		Version:    o.Version(),
		OccurredAt: occurredAt,
	}
}

// OrderPublisher broadcasts order changes after they were committed.
type OrderPublisher interface {
	Publish(ctx context.Context, event OrderChanged) error
}

// OrderFeed delivers order changes of one owner. The channel is closed when
// ctx is done.
type OrderFeed interface {
	SubscribeToOwnerOrders(ctx context.Context, ownerID string) (<-chan OrderChanged, error)
}

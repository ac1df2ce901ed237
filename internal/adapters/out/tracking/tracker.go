// Package tracking collects the orders touched by a unit of work and
// announces them once the transaction is committed.
package tracking

import (
	"context"
	"log/slog"
	"time"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/ports"
)

// Tracker remembers the aggregates written during one unit of work. It is
// not safe for concurrent use; a unit of work belongs to one goroutine.
type Tracker struct {
	publisher ports.OrderPublisher
	logger    *slog.Logger
	now       func() time.Time

	orders []*order.Order
}

// NewTracker returns a tracker publishing through publisher. A nil
// publisher disables announcements.
func NewTracker(publisher ports.OrderPublisher, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// TrackAggregate registers an order as modified within the unit of work.
func (t *Tracker) TrackAggregate(o *order.Order) {
	t.orders = append(t.orders, o)
}

// Tracked returns the orders registered so far.
func (t *Tracker) Tracked() []*order.Order {
	return t.orders
}

// Reset forgets everything tracked, e.g. after a rollback.
func (t *Tracker) Reset() {
	t.orders = nil
}

// PublishAndReset announces every tracked order. Publishing failures are
// logged and swallowed: the transaction is already committed and feed
// subscribers reconcile on their next read anyway.
func (t *Tracker) PublishAndReset(ctx context.Context) {
	orders := t.orders
	t.orders = nil
	if t.publisher == nil {
		return
	}

	at := t.now()
	for _, o := range orders {
		event := ports.NewOrderChanged(o, at)
		if err := t.publisher.Publish(ctx, event); err != nil {
			t.logger.ErrorContext(ctx, "failed to publish order change",
				"order_id", event.OrderID.String(),
				"status", event.Status.String(),
				"error", err,
			)
		}
	}
}

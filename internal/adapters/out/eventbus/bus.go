// Package eventbus fans order changes out to in-process subscribers. It
// backs the order feed when no Redis is configured and in tests.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"preorder/internal/core/ports"
)

const DefaultBuffer = 16

// Bus is an in-process OrderPublisher and OrderFeed. Publish never blocks:
// a subscriber whose buffer is full misses the event and catches up on its
// next read of the repository.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan ports.OrderChanged
	nextID int
	buffer int
	logger *slog.Logger
}

func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string]map[int]chan ports.OrderChanged),
		buffer: buffer,
		logger: logger.With("component", "eventbus"),
	}
}

func (b *Bus) Publish(ctx context.Context, event ports.OrderChanged) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.OwnerID] {
		select {
		case ch <- event:
		default:
			b.logger.WarnContext(ctx, "dropping order change for slow subscriber",
				"owner_id", event.OwnerID,
				"order_id", event.OrderID.String(),
			)
		}
	}
	return nil
}

// SubscribeToOwnerOrders registers a subscriber until ctx is done.
func (b *Bus) SubscribeToOwnerOrders(ctx context.Context, ownerID string) (<-chan ports.OrderChanged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan ports.OrderChanged, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[ownerID] == nil {
		b.subs[ownerID] = make(map[int]chan ports.OrderChanged)
	}
	b.subs[ownerID][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()

		b.mu.Lock()
		delete(b.subs[ownerID], id)
		if len(b.subs[ownerID]) == 0 {
			delete(b.subs, ownerID)
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Subscribers counts the live subscriptions of an owner.
func (b *Bus) Subscribers(ownerID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[ownerID])
}

var (
	_ ports.OrderPublisher = (*Bus)(nil)
	_ ports.OrderFeed      = (*Bus)(nil)
)

// Package redisfeed distributes order changes over Redis pub/sub so that
// every instance serving an owner hears about changes made elsewhere.
package redisfeed

import (
	"context"
	"fmt"
	"log/slog"

	"preorder/internal/adapters/out/orderevents"
	"preorder/internal/core/ports"

	"github.com/go-redis/redis/v8"
)

const DefaultKeyPrefix = "preorder"

// Feed publishes on one channel per owner: {prefix}:orders:{owner}.
type Feed struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewFeed(client *redis.Client, prefix string, logger *slog.Logger) *Feed {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "redisfeed"),
	}
}

func (f *Feed) channel(ownerID string) string {
	return fmt.Sprintf("%s:orders:%s", f.prefix, ownerID)
}

func (f *Feed) Publish(ctx context.Context, event ports.OrderChanged) error {
	data, err := orderevents.Encode(event)
	if err != nil {
		return err
	}
	if err = f.client.Publish(ctx, f.channel(event.OwnerID), data).Err(); err != nil {
		return fmt.Errorf("publish order change to redis: %w", err)
	}
	return nil
}

// SubscribeToOwnerOrders returns once Redis confirmed the subscription.
// Undecodable messages are logged and skipped.
func (f *Feed) SubscribeToOwnerOrders(ctx context.Context, ownerID string) (<-chan ports.OrderChanged, error) {
	pubsub := f.client.Subscribe(ctx, f.channel(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to order changes: %w", err)
	}

	out := make(chan ports.OrderChanged, 1)
	go func() {
		defer func() {
			_ = pubsub.Close()
			close(out)
		}()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				event, err := orderevents.Decode([]byte(msg.Payload))
				if err != nil {
					f.logger.WarnContext(ctx, "skipping malformed order change",
						"channel", msg.Channel,
						"error", err,
					)
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

var (
	_ ports.OrderPublisher = (*Feed)(nil)
	_ ports.OrderFeed      = (*Feed)(nil)
)

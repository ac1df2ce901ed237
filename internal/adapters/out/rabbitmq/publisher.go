// Package rabbitmq announces order changes on a durable topic exchange so
// that services outside this process (notifications, fulfilment) can follow
// the order lifecycle.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"preorder/internal/adapters/out/orderevents"
	"preorder/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange order changes are published to.
// Routing keys have the form "order.<status>".
const DefaultExchange = "preorder_orders_topic"

const publishTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements ports.OrderPublisher over AMQP 0-9-1.
type Publisher struct {
	ch       channel
	exchange string
	now      func() time.Time
	logger   *slog.Logger
}

func NewPublisher(ch channel, exchange string, logger *slog.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		logger:   logger.With("component", "rabbitmq_publisher"),
	}
}

// RoutingKey returns the routing key of event.
func RoutingKey(event ports.OrderChanged) string {
	return "order." + event.Status.String()
}

func (p *Publisher) Publish(ctx context.Context, event ports.OrderChanged) error {
	body, err := orderevents.Encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := RoutingKey(event)
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  orderevents.ContentType,
			MessageId:    fmt.Sprintf("%s:%d", event.OrderID, event.Version),
			Headers:      amqp.Table{"owner_id": event.OwnerID},
			Body:         body,
			Timestamp:    p.now(),
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	p.logger.DebugContext(ctx, "Order change published", "routing_key", key, "order_id", event.OrderID.String())
	return nil
}

// Connection owns the AMQP connection and the channel used for publishing.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to url and declares the durable topic exchange.
func Dial(url, exchange string) (*Connection, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Connection{conn: conn, channel: ch}, nil
}

// Channel returns the publishing channel.
func (c *Connection) Channel() *amqp.Channel {
	return c.channel
}

func (c *Connection) Close() error {
	return errors.Join(c.channel.Close(), c.conn.Close())
}

var _ ports.OrderPublisher = (*Publisher)(nil)

// Package orderevents is the wire format of order change notifications
// shared by the Redis feed and the RabbitMQ publisher.
package orderevents

import (
	"encoding/json"
	"fmt"
	"time"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/ports"
)

// ContentType of encoded messages.
const ContentType = "application/json"

// Message is the JSON body of one notification.
type Message struct {
	OrderID    kernel.UUID `json:"order_id"`
	OwnerID    string      `json:"owner_id"`
	Status     string      `json:"status"`
	Version    int64       `json:"version"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func Encode(event ports.OrderChanged) ([]byte, error) {
	return json.Marshal(Message{
		OrderID:    event.OrderID,
		OwnerID:    event.OwnerID,
		Status:     event.Status.String(),
		Version:    event.Version,
		OccurredAt: event.OccurredAt.UTC(),
	})
}

func Decode(data []byte) (ports.OrderChanged, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return ports.OrderChanged{}, fmt.Errorf("decode order change: %w", err)
	}

	status, err := order.ParseStatus(msg.Status)
	if err != nil {
		return ports.OrderChanged{}, err
	}
	if err = msg.OrderID.Validate(); err != nil {
		return ports.OrderChanged{}, err
	}

	return ports.OrderChanged{
		OrderID:    msg.OrderID,
		OwnerID:    msg.OwnerID,
		Status:     status,
		Version:    msg.Version,
		OccurredAt: msg.OccurredAt,
	}, nil
}

package eventbus

import (
	"context"
	"errors"

	"preorder/internal/core/ports"
)

// Fanout publishes every event to each of its publishers in order. A failing
// publisher does not stop the others; their errors are joined.
type Fanout []ports.OrderPublisher

func (f Fanout) Publish(ctx context.Context, event ports.OrderChanged) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ ports.OrderPublisher = Fanout(nil)

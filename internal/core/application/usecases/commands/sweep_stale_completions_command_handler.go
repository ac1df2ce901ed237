package commands

import (
	"context"

	"preorder/internal/core/domain/model/order"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SweepStaleCompletionsCommandHandler completes Placed or Locked orders
// whose pickup instant is in the past and whose total is exactly zero.
// Past orders with a non-zero total are left untouched.
type SweepStaleCompletionsCommandHandler struct {
	sweeper sweeper
}

func NewSweepStaleCompletionsCommandHandler(uowFactory OrderUoWFactory) SweepStaleCompletionsCommandHandler {
	return SweepStaleCompletionsCommandHandler{
		sweeper: sweeper{
			uowFactory: uowFactory,
			counter:    newSweepCounter(),
			target:     order.Completed,
		},
	}
}

func (h *SweepStaleCompletionsCommandHandler) Handle(ctx context.Context, cmd SweepCommand) (_ SweepResult, err error) {
	if err = cmd.Validate(); err != nil {
		return SweepResult{}, err
	}

	ctx, span := tracer().Start(ctx, "SweepStaleCompletions", trace.WithAttributes(
		attribute.String("owner.id", cmd.OwnerID()),
	))
	defer func() { endSpan(span, err) }()

	orders, err := h.sweeper.candidates(ctx, cmd, order.Placed, order.Locked)
	if err != nil {
		return SweepResult{}, err
	}

	stale := func(o *order.Order) bool {
		return !o.IsTerminal() &&
			o.PickupAt().Before(cmd.Now()) &&
			o.Total().IsZero()
	}
	result, err := h.sweeper.run(ctx, orders, stale, (*order.Order).Complete)
	span.SetAttributes(attribute.Int("sweep.transitioned", result.Transitioned))
	return result, err
}

package commands

import (
	"context"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SweepDeadlinesCommandHandler locks Placed orders whose edit deadline has
// passed. Re-running it is a no-op.
type SweepDeadlinesCommandHandler struct {
	sweeper sweeper
	window  services.EditWindow
}

func NewSweepDeadlinesCommandHandler(uowFactory OrderUoWFactory, window services.EditWindow) SweepDeadlinesCommandHandler {
	return SweepDeadlinesCommandHandler{
		sweeper: sweeper{
			uowFactory: uowFactory,
			counter:    newSweepCounter(),
			target:     order.Locked,
		},
		window: window,
	}
}

func (h *SweepDeadlinesCommandHandler) Handle(ctx context.Context, cmd SweepCommand) (_ SweepResult, err error) {
	if err = cmd.Validate(); err != nil {
		return SweepResult{}, err
	}

	ctx, span := tracer().Start(ctx, "SweepDeadlines", trace.WithAttributes(
		attribute.String("owner.id", cmd.OwnerID()),
	))
	defer func() { endSpan(span, err) }()

	orders, err := h.sweeper.candidates(ctx, cmd, order.Placed)
	if err != nil {
		return SweepResult{}, err
	}

	expired := func(o *order.Order) bool {
		return o.Status() == order.Placed && h.window.IsExpired(o, cmd.Now())
	}
	result, err := h.sweeper.run(ctx, orders, expired, (*order.Order).Lock)
	span.SetAttributes(attribute.Int("sweep.transitioned", result.Transitioned))
	return result, err
}

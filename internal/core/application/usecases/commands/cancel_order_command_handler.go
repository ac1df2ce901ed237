package commands

import (
	"context"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CancelOrderCommandHandler cancels orders inside one unit of work.
type CancelOrderCommandHandler struct {
	uowFactory OrderUoWFactory
}

func NewCancelOrderCommandHandler(uowFactory OrderUoWFactory) CancelOrderCommandHandler {
	return CancelOrderCommandHandler{
		uowFactory: uowFactory,
	}
}

// Handle cancels the order. Orders of other owners are reported as not
// found; a concurrent change surfaces as errs.ErrVersionConflict. A command
// built from a store leaves that store empty and unbound if it was bound to
// the cancelled order.
func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (_ *order.Order, err error) {
	if err = cmd.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer().Start(ctx, "CancelOrder", trace.WithAttributes(
		attribute.String("owner.id", cmd.OwnerID()),
		attribute.String("order.id", cmd.OrderID().String()),
	))
	defer func() { endSpan(span, err) }()

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.LoadOrder(ctx, cmd.OrderID())
	if err != nil {
		return nil, err
	}
	if o.OwnerID() != cmd.OwnerID() {
		return nil, errs.NewObjectNotFoundError("orderID", cmd.OrderID())
	}

	expectedVersion := o.Version()
	if err = o.Cancel(); err != nil {
		return nil, err
	}

	if err = repo.UpdateOrder(ctx, o, expectedVersion); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	if store := cmd.Store(); store != nil && store.ClearIfBoundTo(o.ID()) {
		span.AddEvent("basket released")
	}
	return o, nil
}

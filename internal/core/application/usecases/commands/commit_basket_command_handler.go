package commands

import (
	"context"
	"fmt"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"
	"preorder/internal/pkg/errs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CommitBasketCommandHandler places or amends orders from baskets.
//
// Example:
//
//	handler := NewCommitBasketCommandHandler(uowFactory, services.NewEditWindow(calendar), clock)
//	o, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, ErrPickupWindowExpired):
//	    // ask the owner for another pickup slot
//	case errors.Is(err, errs.ErrVersionConflict):
//	    // reconcile, then retry
//	}
type CommitBasketCommandHandler struct {
	uowFactory OrderUoWFactory
	window     services.EditWindow
	clock      kernel.Clock
}

// NewCommitBasketCommandHandler creates a handler. The clock only supplies
// the non-production pickup offset; the current instant comes from the command.
func NewCommitBasketCommandHandler(
	uowFactory OrderUoWFactory,
	window services.EditWindow,
	clock kernel.Clock,
) CommitBasketCommandHandler {
	return CommitBasketCommandHandler{
		uowFactory: uowFactory,
		window:     window,
		clock:      clock,
	}
}

// Handle commits the basket inside one unit of work and returns the
// resulting order.
func (h *CommitBasketCommandHandler) Handle(ctx context.Context, cmd CommitBasketCommand) (_ *order.Order, err error) {
	if err = cmd.Validate(); err != nil {
		return nil, err
	}

	snapshot := cmd.Snapshot()
	ctx, span := tracer().Start(ctx, "CommitBasket", trace.WithAttributes(
		attribute.String("owner.id", snapshot.OwnerID()),
		attribute.Bool("basket.bound", snapshot.IsBound()),
	))
	defer func() { endSpan(span, err) }()

	var committed *order.Order
	if snapshot.IsBound() {
		committed, err = h.amend(ctx, cmd)
	} else {
		committed, err = h.place(ctx, cmd)
	}
	if err != nil {
		return nil, err
	}

	if store := cmd.Store(); store != nil {
		if _, err = store.MarkCommitted(
			snapshot.Revision(),
			committed.ID(),
			h.window.DateKey(committed),
			committed.Version(),
			committed.Items(),
		); err != nil {
			return nil, err
		}
	}

	return committed, nil
}

func (h *CommitBasketCommandHandler) amend(ctx context.Context, cmd CommitBasketCommand) (*order.Order, error) {
	snapshot := cmd.Snapshot()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.LoadOrder(ctx, snapshot.BoundOrderID())
	if err != nil {
		return nil, err
	}

	if o.OwnerID() != snapshot.OwnerID() {
		return nil, errs.NewObjectNotFoundError("orderID", snapshot.BoundOrderID())
	}
	if o.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s", order.ErrAlreadyTerminal, o.ID(), o.Status())
	}
	if !h.window.IsOpen(o, cmd.Now()) {
		return nil, ErrEditWindowClosed
	}
	if o.Version() != snapshot.BoundOrderVersion() {
		return nil, errs.NewVersionConflictError("order", o.ID(), snapshot.BoundOrderVersion(), o.Version())
	}

	if err = o.ReplaceItems(snapshot.Items()); err != nil {
		return nil, err
	}

	if err = repo.UpdateOrder(ctx, o, snapshot.BoundOrderVersion()); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

func (h *CommitBasketCommandHandler) place(ctx context.Context, cmd CommitBasketCommand) (*order.Order, error) {
	snapshot := cmd.Snapshot()
	pickupAt := cmd.PickupAt()
	calendar := h.window.Calendar()

	switch {
	case snapshot.IsEmpty():
		return nil, ErrNothingToOrder
	case pickupAt.IsZero():
		return nil, ErrNoPickupSelected
	case !calendar.IsValidPickupInstant(pickupAt):
		return nil, ErrInvalidPickupInstant
	case !calendar.IsEditableAt(pickupAt, cmd.Now()):
		return nil, ErrPickupWindowExpired
	}

	offsetDays := h.clock.OffsetDays()
	o, err := order.NewOrder(
		snapshot.OwnerID(),
		cmd.Now(),
		calendar.ApplyOffset(pickupAt, offsetDays),
		offsetDays,
		snapshot.Items(),
	)
	if err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if _, err = uow.OrderRepository().CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

package commands

import (
	"context"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReconcileBasketCommandHandler detects divergence between a basket and
// persisted orders. It never merges: a basket bound to an order that
// changed elsewhere yields a *ReconciliationConflictError carrying both
// sides, and resolution is left to ResolveConflictCommandHandler.
type ReconcileBasketCommandHandler struct {
	uowFactory OrderUoWFactory
	reconciler services.Reconciler
	window     services.EditWindow
}

func NewReconcileBasketCommandHandler(uowFactory OrderUoWFactory, window services.EditWindow) ReconcileBasketCommandHandler {
	return ReconcileBasketCommandHandler{
		uowFactory: uowFactory,
		reconciler: services.NewReconciler(window),
		window:     window,
	}
}

func (h *ReconcileBasketCommandHandler) Handle(ctx context.Context, cmd ReconcileBasketCommand) (_ ReconcileOutcome, err error) {
	if err = cmd.Validate(); err != nil {
		return ReconcileOutcome{}, err
	}

	store := cmd.Store()
	ctx, span := tracer().Start(ctx, "ReconcileBasket", trace.WithAttributes(
		attribute.String("owner.id", store.OwnerID()),
	))
	defer func() { endSpan(span, err) }()

	placed, err := h.uowFactory.Create().OrderRepository().ListOrdersForOwner(ctx, store.OwnerID(), order.Placed)
	if err != nil {
		return ReconcileOutcome{}, err
	}

	snapshot := store.Snapshot()
	current, found := h.reconciler.SelectCurrentOrder(placed, cmd.Now())

	if !found {
		outcome := ReconcileOutcome{}
		if snapshot.IsBound() {
			store.Unbind()
			outcome.BindingReleased = true
		}
		outcome.Result = h.reconciler.Diff(store.Snapshot(), nil)
		return outcome, nil
	}

	if !snapshot.IsBound() {
		if err = store.BindToOrder(current.ID(), h.window.DateKey(current), current.Version(), current.Items()); err != nil {
			return ReconcileOutcome{}, err
		}
		return ReconcileOutcome{
			Order:  current,
			Result: h.reconciler.Diff(store.Snapshot(), current),
			Bound:  true,
		}, nil
	}

	if !snapshot.BoundOrderID().IsEqual(current.ID()) || snapshot.BoundOrderVersion() != current.Version() {
		return ReconcileOutcome{Order: current}, &ReconciliationConflictError{
			Local:  snapshot,
			Remote: current,
		}
	}

	return ReconcileOutcome{
		Order:  current,
		Result: h.reconciler.Diff(snapshot, current),
	}, nil
}

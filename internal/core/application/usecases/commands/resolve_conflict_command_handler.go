package commands

import (
	"context"
	"fmt"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"
	"preorder/internal/pkg/errs"
)

// ResolveConflictCommandHandler rebinds a basket to the remote side of a
// conflict. It only touches the basket; the order changes on the next
// commit, if at all.
type ResolveConflictCommandHandler struct {
	uowFactory OrderUoWFactory
	window     services.EditWindow
}

func NewResolveConflictCommandHandler(uowFactory OrderUoWFactory, window services.EditWindow) ResolveConflictCommandHandler {
	return ResolveConflictCommandHandler{
		uowFactory: uowFactory,
		window:     window,
	}
}

// Handle returns the order the basket is now bound to.
func (h *ResolveConflictCommandHandler) Handle(ctx context.Context, cmd ResolveConflictCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	store := cmd.Store()
	remote, err := h.uowFactory.Create().OrderRepository().LoadOrder(ctx, cmd.OrderID())
	if err != nil {
		return nil, err
	}
	if remote.OwnerID() != store.OwnerID() {
		return nil, errs.NewObjectNotFoundError("orderID", cmd.OrderID())
	}
	if remote.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s", order.ErrAlreadyTerminal, remote.ID(), remote.Status())
	}
	if !h.window.IsOpen(remote, cmd.Now()) {
		return nil, ErrEditWindowClosed
	}

	items := remote.Items()
	if cmd.Policy() == KeepLocal {
		items = store.Snapshot().Items()
	}
	if err = store.BindToOrder(remote.ID(), h.window.DateKey(remote), remote.Version(), items); err != nil {
		return nil, err
	}

	return remote, nil
}

package commands

import (
	"errors"
	"time"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"
	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

var ErrReconcileBasketCommandIsNotConstructed = errors.New(
	"ReconcileBasketCommand must be created via NewReconcileBasketCommand constructor",
)

// ReconcileBasketCommand aligns a live basket with the owner's current
// editable order.
type ReconcileBasketCommand struct { //nolint:recvcheck //using for validation
	store *basket.Store
	now   time.Time

	guard guard.ConstructorGuard
}

func NewReconcileBasketCommand(store *basket.Store, now time.Time) (ReconcileBasketCommand, error) {
	if store == nil {
		return ReconcileBasketCommand{}, errs.NewValueIsRequiredError("store")
	}
	if store.OwnerID() == "" {
		return ReconcileBasketCommand{}, ErrAuthenticationRequired
	}
	if now.IsZero() {
		return ReconcileBasketCommand{}, errs.NewValueIsRequiredError("now")
	}

	return ReconcileBasketCommand{
		store: store,
		now:   now,
		guard: guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ReconcileBasketCommand) Validate() error {
	return c.guard.Validate(ErrReconcileBasketCommandIsNotConstructed)
}

func (c ReconcileBasketCommand) Store() *basket.Store {
	return c.store
}

func (c ReconcileBasketCommand) Now() time.Time {
	return c.now
}

// ReconcileOutcome describes what reconciliation found and did.
type ReconcileOutcome struct {
	// Order is the owner's current editable order, nil for a fresh draft.
	Order *order.Order

	// Result compares the basket with Order after any binding change.
	Result services.ReconciliationResult

	// Bound is true when an unbound basket was just loaded from Order.
	Bound bool

	// BindingReleased is true when the bound order is no longer editable and
	// the basket was turned into a fresh draft keeping its items.
	BindingReleased bool
}

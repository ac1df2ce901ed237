package commands

import (
	"errors"
	"fmt"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"
)

// Expected outcomes of commit and cancel. Callers map them to user-facing
// messages; none of them is an infrastructure failure.
var (
	ErrNoPickupSelected       = errors.New("no pickup instant selected")
	ErrPickupWindowExpired    = errors.New("pickup window expired")
	ErrEditWindowClosed       = errors.New("edit window closed")
	ErrNothingToOrder         = errors.New("nothing to order")
	ErrInvalidPickupInstant   = errors.New("invalid pickup instant")
	ErrAuthenticationRequired = errors.New("authentication required")
)

// ReconciliationConflictError reports that the basket and the owner's
// current order diverged in a way that must not be merged automatically.
// Local is the basket as it was; Remote is the order found in storage.
type ReconciliationConflictError struct {
	Local  basket.Basket
	Remote *order.Order
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("%s: basket bound to order %s version %d, current order is %s version %d",
		errs.ErrVersionConflict,
		e.Local.BoundOrderID(), e.Local.BoundOrderVersion(),
		e.Remote.ID(), e.Remote.Version(),
	)
}

func (e *ReconciliationConflictError) Unwrap() error {
	return errs.ErrVersionConflict
}

// isExpectedOutcome reports domain outcomes that are returned to callers
// but are not failures of the engine.
func isExpectedOutcome(err error) bool {
	for _, expected := range []error{
		ErrNoPickupSelected,
		ErrPickupWindowExpired,
		ErrEditWindowClosed,
		ErrNothingToOrder,
		ErrInvalidPickupInstant,
		ErrAuthenticationRequired,
		order.ErrAlreadyTerminal,
		errs.ErrObjectNotFound,
		errs.ErrVersionConflict,
	} {
		if errors.Is(err, expected) {
			return true
		}
	}
	return false
}

package order

import (
	"errors"
	"fmt"
	"time"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// the NewOrder or RestoreOrder factory methods.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	// ErrIDAlreadyAssigned is returned when AssignID is called on an order that has
	// already been persisted.
	ErrIDAlreadyAssigned = errors.New("order id is already assigned")
)

// InitialVersion is the version of a freshly created order.
const InitialVersion int64 = 1

// Order is a committed basket bound to one pickup instant. It is the aggregate
// root of the order lifecycle: Placed -> Locked -> Completed, with Cancelled
// reachable from either non-terminal state.
//
// Order follows these invariants:
//   - Must belong to a non-empty owner
//   - Never holds zero-quantity lines; at most one line per product
//   - Items may only be replaced while Placed
//   - Version starts at InitialVersion and only the persistence layer advances it
//
// The id is assigned by the repository on creation (see AssignID).
type Order struct {
	id        kernel.UUID
	ownerID   string
	createdAt time.Time

	// pickupAt is the stored pickup instant, already shifted by
	// pickupOffsetDays in non-production environments.
	pickupAt         time.Time
	pickupOffsetDays int

	items   []kernel.LineItem
	status  Status
	version int64

	isConstructed bool
}

// NewOrder creates a Placed order without an id.
//
// Example:
//
//	o, err := order.NewOrder("owner-1", now, pickupAt, 0, snapshot.Items())
//	if err != nil {
//	    // Handle validation error
//	}
//	id, err := repo.CreateOrder(ctx, o)
func NewOrder(ownerID string, createdAt, pickupAt time.Time, pickupOffsetDays int, items []kernel.LineItem) (*Order, error) {
	o := &Order{
		pickupOffsetDays: pickupOffsetDays,
		status:           Placed,
		version:          InitialVersion,
		isConstructed:    true,
	}

	if err := errors.Join(
		o.setOwnerID(ownerID),
		o.setCreatedAt(createdAt),
		o.setPickupAt(pickupAt),
	); err != nil {
		return nil, err
	}
	o.items = kernel.NormalizeLineItems(items)

	return o, nil
}

// RestoreOrder rebuilds an order from persistence. Unlike NewOrder it
// accepts any valid status and version and requires the id.
func RestoreOrder(
	id kernel.UUID,
	ownerID string,
	createdAt, pickupAt time.Time,
	pickupOffsetDays int,
	items []kernel.LineItem,
	status Status,
	version int64,
) (*Order, error) {
	o := &Order{
		pickupOffsetDays: pickupOffsetDays,
		isConstructed:    true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setOwnerID(ownerID),
		o.setCreatedAt(createdAt),
		o.setPickupAt(pickupAt),
		o.setStatus(status),
		o.setVersion(version),
	); err != nil {
		return nil, err
	}
	o.items = kernel.NormalizeLineItems(items)

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// IsEqual compares two orders by their identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && !o.id.IsZero() && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID {
	return o.id
}

func (o *Order) OwnerID() string {
	return o.ownerID
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// PickupAt returns the stored pickup instant (offset applied).
func (o *Order) PickupAt() time.Time {
	return o.pickupAt
}

func (o *Order) PickupOffsetDays() int {
	return o.pickupOffsetDays
}

// Items returns a copy of the lines sorted by product id.
func (o *Order) Items() []kernel.LineItem {
	items := make([]kernel.LineItem, len(o.items))
	copy(items, o.items)
	return items
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) Version() int64 {
	return o.version
}

func (o *Order) IsTerminal() bool {
	return o.status.IsTerminal()
}

// Total is the sum of quantity × unit price over all lines.
func (o *Order) Total() decimal.Decimal {
	return kernel.SumSubtotals(o.items)
}

// Quantity returns the committed quantity of a product, zero if absent.
func (o *Order) Quantity(productID string) decimal.Decimal {
	for _, item := range o.items {
		if item.ProductID() == productID {
			return item.Quantity()
		}
	}
	return decimal.Zero
}

// AssignID sets the id of a new order. Repositories call it exactly once.
func (o *Order) AssignID(id kernel.UUID) error {
	if !o.id.IsZero() {
		return ErrIDAlreadyAssigned
	}
	return o.setID(id)
}

// ConfirmUpdate records a successful conditional update that was based on
// expectedVersion; the stored version is now expectedVersion+1.
func (o *Order) ConfirmUpdate(expectedVersion int64) {
	o.version = expectedVersion + 1
}

// ReplaceItems swaps the full item set of a Placed order. Zero-quantity
// lines are dropped.
func (o *Order) ReplaceItems(items []kernel.LineItem) error {
	if err := o.status.ValidateEdit(); err != nil {
		return err
	}
	o.items = kernel.NormalizeLineItems(items)
	return nil
}

// Lock closes the edit window: Placed -> Locked.
func (o *Order) Lock() error {
	newStatus, err := o.status.Lock()
	if err != nil {
		return err
	}
	o.status = newStatus
	return nil
}

// Complete moves a Placed or Locked order to Completed.
func (o *Order) Complete() error {
	newStatus, err := o.status.Complete()
	if err != nil {
		return err
	}
	o.status = newStatus
	return nil
}

// Cancel moves a Placed or Locked order to Cancelled.
func (o *Order) Cancel() error {
	newStatus, err := o.status.Cancel()
	if err != nil {
		return err
	}
	o.status = newStatus
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setOwnerID(ownerID string) error {
	if ownerID == "" {
		return errs.NewValueIsRequiredError("ownerID")
	}
	o.ownerID = ownerID
	return nil
}

func (o *Order) setCreatedAt(createdAt time.Time) error {
	if createdAt.IsZero() {
		return errs.NewValueIsRequiredError("createdAt")
	}
	o.createdAt = createdAt
	return nil
}

func (o *Order) setPickupAt(pickupAt time.Time) error {
	if pickupAt.IsZero() {
		return errs.NewValueIsRequiredError("pickupAt")
	}
	o.pickupAt = pickupAt
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setVersion(version int64) error {
	if version < InitialVersion {
		return errs.NewValueIsInvalidErrorWithCause("version is invalid", fmt.Errorf("%d is less than %d", version, InitialVersion))
	}
	o.version = version
	return nil
}

package queries

import (
	"errors"
	"time"

	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

// MaxPickupSlots caps how many upcoming slots one query may ask for.
const MaxPickupSlots = 12

var (
	ErrListPickupSlotsQueryIsNotConstructed = errors.New(
		"ListPickupSlotsQuery must be created via NewListPickupSlotsQuery constructor",
	)
)

// ListPickupSlotsQuery asks for the next pickup instants that can still be
// ordered for.
type ListPickupSlotsQuery struct {
	from  time.Time
	count int

	guard guard.ConstructorGuard
}

func NewListPickupSlotsQuery(from time.Time, count int) (ListPickupSlotsQuery, error) {
	var errList []error
	if from.IsZero() {
		errList = append(errList, errs.NewValueIsRequiredError("from"))
	}
	if count < 1 || count > MaxPickupSlots {
		errList = append(errList, errs.NewValueIsOutOfRangeError("count", count, 1, MaxPickupSlots))
	}
	if err := errors.Join(errList...); err != nil {
		return ListPickupSlotsQuery{}, err
	}

	return ListPickupSlotsQuery{
		from:  from,
		count: count,
		guard: guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q ListPickupSlotsQuery) Validate() error {
	return q.guard.Validate(ErrListPickupSlotsQueryIsNotConstructed)
}

func (q ListPickupSlotsQuery) From() time.Time {
	return q.from
}

func (q ListPickupSlotsQuery) Count() int {
	return q.count
}

// PickupSlot is one selectable pickup instant with its edit deadline.
type PickupSlot struct {
	PickupAt time.Time
	DateKey  string
	Deadline time.Time
}

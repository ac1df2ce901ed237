package queries

import (
	"errors"
	"time"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

var (
	ErrListOrdersQueryIsNotConstructed = errors.New(
		"ListOrdersQuery must be created via NewListOrdersQuery constructor",
	)
)

// ListOrdersQuery lists an owner's orders, newest first, optionally
// restricted to some statuses.
//
// Example:
//
//	query, err := NewListOrdersQuery("owner-1", clock.Now(), order.Placed, order.Locked)
//	if err != nil {
//	    return err
//	}
//
//	orders, err := handler.Handle(ctx, query)
//	for _, o := range orders {
//	    fmt.Printf("%s %s editable=%t\n", o.DateKey, o.Status, o.Editable)
//	}
type ListOrdersQuery struct {
	ownerID  string
	statuses []order.Status
	now      time.Time

	guard guard.ConstructorGuard
}

// NewListOrdersQuery requires an owner and a reference instant used to
// report editability. No statuses means every status.
func NewListOrdersQuery(ownerID string, now time.Time, statuses ...order.Status) (ListOrdersQuery, error) {
	var errList []error
	if ownerID == "" {
		errList = append(errList, commands.ErrAuthenticationRequired)
	}
	if now.IsZero() {
		errList = append(errList, errs.NewValueIsRequiredError("now"))
	}
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			errList = append(errList, err)
		}
	}
	if err := errors.Join(errList...); err != nil {
		return ListOrdersQuery{}, err
	}

	return ListOrdersQuery{
		ownerID:  ownerID,
		statuses: statuses,
		now:      now,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}

func (q ListOrdersQuery) OwnerID() string {
	return q.ownerID
}

func (q ListOrdersQuery) Statuses() []order.Status {
	return q.statuses
}

func (q ListOrdersQuery) Now() time.Time {
	return q.now
}

// ListOrdersQueryResponse is one order as shown to its owner. PickupAt is
// the real pickup instant, without the test offset.
type ListOrdersQueryResponse struct {
	ID       kernel.UUID
	Status   order.Status
	Version  int64
	PickupAt time.Time
	DateKey  string
	Deadline time.Time
	Editable bool
	Total    decimal.Decimal
	Items    []LineItemResponse
}

type LineItemResponse struct {
	ProductID string
	UnitLabel string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

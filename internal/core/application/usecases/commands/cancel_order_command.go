package commands

import (
	"errors"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

var ErrCancelOrderCommandIsNotConstructed = errors.New(
	"CancelOrderCommand must be created via NewCancelOrderCommand constructor",
)

// CancelOrderCommand withdraws an owner's Placed or Locked order.
//
// Example:
//
//	cmd, err := NewCancelOrderCommand(orderID, "owner-1")
//	if err != nil {
//	    return err
//	}
//	o, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, order.ErrAlreadyTerminal) {
//	    // already completed or cancelled
//	}
type CancelOrderCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	ownerID string
	store   *basket.Store

	guard guard.ConstructorGuard
}

// NewCancelOrderCommand validates the order id and requires an owner.
func NewCancelOrderCommand(orderID kernel.UUID, ownerID string) (CancelOrderCommand, error) {
	cmd := CancelOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setOwnerID(ownerID),
	); err != nil {
		return CancelOrderCommand{}, err
	}

	return cmd, nil
}

// NewCancelStoreCommand cancels an order of the store's owner and clears the
// store on success when it is bound to that order.
func NewCancelStoreCommand(store *basket.Store, orderID kernel.UUID) (CancelOrderCommand, error) {
	if store == nil {
		return CancelOrderCommand{}, errs.NewValueIsRequiredError("store")
	}
	cmd, err := NewCancelOrderCommand(orderID, store.OwnerID())
	if err != nil {
		return CancelOrderCommand{}, err
	}
	cmd.store = store
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CancelOrderCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderCommandIsNotConstructed)
}

func (c CancelOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c CancelOrderCommand) OwnerID() string {
	return c.ownerID
}

// Store returns the live basket to release, or nil.
func (c CancelOrderCommand) Store() *basket.Store {
	return c.store
}

func (c *CancelOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("orderID", err)
	}

	c.orderID = orderID
	return nil
}

func (c *CancelOrderCommand) setOwnerID(ownerID string) error {
	if ownerID == "" {
		return ErrAuthenticationRequired
	}

	c.ownerID = ownerID
	return nil
}

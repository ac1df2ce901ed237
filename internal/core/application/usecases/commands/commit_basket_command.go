package commands

import (
	"errors"
	"time"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

var ErrCommitBasketCommandIsNotConstructed = errors.New(
	"CommitBasketCommand must be created via NewCommitBasketCommand constructor",
)

// CommitBasketCommand turns a basket snapshot into an order: it amends the
// bound order, or places a new one for pickupAt when the basket is unbound.
//
// Example:
//
//	cmd, err := NewCommitStoreCommand(store, pickupAt, clock.Now())
//	if err != nil {
//	    return err // ErrAuthenticationRequired for guest baskets
//	}
//	o, err := handler.Handle(ctx, cmd)
type CommitBasketCommand struct { //nolint:recvcheck //using for validation
	snapshot basket.Basket
	store    *basket.Store
	pickupAt time.Time
	now      time.Time

	guard guard.ConstructorGuard
}

// NewCommitBasketCommand commits a detached snapshot. pickupAt is ignored
// for bound baskets and may be zero.
func NewCommitBasketCommand(snapshot basket.Basket, pickupAt, now time.Time) (CommitBasketCommand, error) {
	cmd := CommitBasketCommand{
		pickupAt: pickupAt,
		guard:    guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setSnapshot(snapshot),
		cmd.setNow(now),
	); err != nil {
		return CommitBasketCommand{}, err
	}

	return cmd, nil
}

// NewCommitStoreCommand commits the current state of store and rebinds the
// store to the resulting order on success.
func NewCommitStoreCommand(store *basket.Store, pickupAt, now time.Time) (CommitBasketCommand, error) {
	if store == nil {
		return CommitBasketCommand{}, errs.NewValueIsRequiredError("store")
	}
	cmd, err := NewCommitBasketCommand(store.Snapshot(), pickupAt, now)
	if err != nil {
		return CommitBasketCommand{}, err
	}
	cmd.store = store
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CommitBasketCommand) Validate() error {
	return c.guard.Validate(ErrCommitBasketCommandIsNotConstructed)
}

func (c CommitBasketCommand) Snapshot() basket.Basket {
	return c.snapshot
}

// Store returns the live basket to rebind, or nil.
func (c CommitBasketCommand) Store() *basket.Store {
	return c.store
}

func (c CommitBasketCommand) PickupAt() time.Time {
	return c.pickupAt
}

func (c CommitBasketCommand) Now() time.Time {
	return c.now
}

func (c *CommitBasketCommand) setSnapshot(snapshot basket.Basket) error {
	if snapshot.OwnerID() == "" {
		return ErrAuthenticationRequired
	}

	c.snapshot = snapshot
	return nil
}

func (c *CommitBasketCommand) setNow(now time.Time) error {
	if now.IsZero() {
		return errs.NewValueIsRequiredError("now")
	}

	c.now = now
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"time"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

var ErrResolveConflictCommandIsNotConstructed = errors.New(
	"ResolveConflictCommand must be created via NewResolveConflictCommand constructor",
)

// ResolutionPolicy selects which side of a reconciliation conflict wins.
type ResolutionPolicy string

const (
	// TakeRemote discards local edits and loads the remote order.
	TakeRemote ResolutionPolicy = "take_remote"

	// KeepLocal keeps the local items and rebinds to the remote order's
	// current version, so the next commit overwrites the remote items.
	KeepLocal ResolutionPolicy = "keep_local"
)

// ParseResolutionPolicy validates a policy name.
func ParseResolutionPolicy(s string) (ResolutionPolicy, error) {
	switch p := ResolutionPolicy(s); p {
	case TakeRemote, KeepLocal:
		return p, nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("policy", fmt.Errorf("%q is not a known resolution policy", s))
	}
}

// ResolveConflictCommand applies a caller-chosen policy to a conflict
// previously reported for orderID.
type ResolveConflictCommand struct { //nolint:recvcheck //using for validation
	store   *basket.Store
	orderID kernel.UUID
	policy  ResolutionPolicy
	now     time.Time

	guard guard.ConstructorGuard
}

func NewResolveConflictCommand(
	store *basket.Store,
	orderID kernel.UUID,
	policy ResolutionPolicy,
	now time.Time,
) (ResolveConflictCommand, error) {
	cmd := ResolveConflictCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setStore(store),
		cmd.setOrderID(orderID),
		cmd.setPolicy(policy),
		cmd.setNow(now),
	); err != nil {
		return ResolveConflictCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c ResolveConflictCommand) Validate() error {
	return c.guard.Validate(ErrResolveConflictCommandIsNotConstructed)
}

func (c ResolveConflictCommand) Store() *basket.Store {
	return c.store
}

func (c ResolveConflictCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ResolveConflictCommand) Policy() ResolutionPolicy {
	return c.policy
}

func (c ResolveConflictCommand) Now() time.Time {
	return c.now
}

func (c *ResolveConflictCommand) setStore(store *basket.Store) error {
	if store == nil {
		return errs.NewValueIsRequiredError("store")
	}
	if store.OwnerID() == "" {
		return ErrAuthenticationRequired
	}

	c.store = store
	return nil
}

func (c *ResolveConflictCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("orderID", err)
	}

	c.orderID = orderID
	return nil
}

func (c *ResolveConflictCommand) setPolicy(policy ResolutionPolicy) error {
	p, err := ParseResolutionPolicy(string(policy))
	if err != nil {
		return err
	}

	c.policy = p
	return nil
}

func (c *ResolveConflictCommand) setNow(now time.Time) error {
	if now.IsZero() {
		return errs.NewValueIsRequiredError("now")
	}

	c.now = now
	return nil
}

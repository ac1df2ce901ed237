package commands

import (
	"errors"
	"time"

	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

var ErrSweepCommandIsNotConstructed = errors.New(
	"SweepCommand must be created via NewSweepCommand constructor",
)

// SweepCommand drives both periodic sweeps. An empty owner sweeps every
// order; a non-empty owner restricts the sweep to that owner's orders, as
// done at session start.
//
// Example:
//
//	cmd, _ := NewSweepCommand(clock.Now(), "")
//	locked, err := deadlineHandler.Handle(ctx, cmd)
type SweepCommand struct { //nolint:recvcheck //using for validation
	now     time.Time
	ownerID string

	guard guard.ConstructorGuard
}

func NewSweepCommand(now time.Time, ownerID string) (SweepCommand, error) {
	if now.IsZero() {
		return SweepCommand{}, errs.NewValueIsRequiredError("now")
	}

	return SweepCommand{
		now:     now,
		ownerID: ownerID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c SweepCommand) Validate() error {
	return c.guard.Validate(ErrSweepCommandIsNotConstructed)
}

func (c SweepCommand) Now() time.Time {
	return c.now
}

// OwnerID is empty for a global sweep.
func (c SweepCommand) OwnerID() string {
	return c.ownerID
}

// SweepResult summarises one sweep run.
type SweepResult struct {
	Examined     int
	Transitioned int
	Conflicts    int
}

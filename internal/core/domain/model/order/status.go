package order

import (
	"errors"
	"fmt"
	"strings"

	"preorder/internal/pkg/errs"
)

// ErrAlreadyTerminal is returned for any transition out of Completed or
// Cancelled.
var ErrAlreadyTerminal = errors.New("order is already completed or cancelled")

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Placed ──> Locked ──> Completed
//	  │  │        │
//	  │  └────────┼──────> Completed (stale auto-completion)
//	  └───────────┴──────> Cancelled
//
// Completed and Cancelled are terminal.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Placed is the initial status. The owner may still edit the order
	// until its edit deadline.
	Placed

	// Locked orders are past their edit deadline and await pickup.
	Locked

	// Completed orders were picked up (or auto-completed when empty).
	Completed

	// Cancelled orders were withdrawn before completion.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "unknown",
		Placed:    "placed",
		Locked:    "locked",
		Completed: "completed",
		Cancelled: "cancelled",
	}
}

func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Placed:    "placed",
		Locked:    "locked",
		Completed: "completed",
		Cancelled: "cancelled",
	}
}

// ParseStatus maps a status name (case-insensitive) to its value.
func ParseStatus(s string) (Status, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for status, str := range getValidStatusStrings() {
		if str == name {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is valid.
// Unknown (0) and any out-of-range value are invalid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String implements fmt.Stringer and is safe on invalid values.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

// Lock transitions Placed -> Locked.
//
// Example:
//
//	newStatus, err := currentStatus.Lock()
//	if err != nil {
//	    // Order was not Placed
//	}
func (s Status) Lock() (Status, error) {
	if s.IsTerminal() {
		return 0, fmt.Errorf("%w: cannot lock a %s order", ErrAlreadyTerminal, s)
	}
	if s != Placed {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to lock", s.String()),
		)
	}
	return Locked, nil
}

// Complete transitions Placed or Locked -> Completed.
func (s Status) Complete() (Status, error) {
	if s.IsTerminal() {
		return 0, fmt.Errorf("%w: cannot complete a %s order", ErrAlreadyTerminal, s)
	}
	if s != Placed && s != Locked {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to complete", s.String()),
		)
	}
	return Completed, nil
}

// Cancel transitions Placed or Locked -> Cancelled.
func (s Status) Cancel() (Status, error) {
	if s.IsTerminal() {
		return 0, fmt.Errorf("%w: cannot cancel a %s order", ErrAlreadyTerminal, s)
	}
	if s != Placed && s != Locked {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to cancel", s.String()),
		)
	}
	return Cancelled, nil
}

// ValidateEdit checks that the items of an order in this status may still
// be replaced. Only Placed orders are editable.
func (s Status) ValidateEdit() error {
	if s.IsTerminal() {
		return fmt.Errorf("%w: cannot edit a %s order", ErrAlreadyTerminal, s)
	}
	if s != Placed {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to edit", s.String()),
		)
	}
	return nil
}

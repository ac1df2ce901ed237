// Package guard holds the ConstructorGuard used by commands, queries and
// value objects to reject zero values that bypassed their constructor.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when the caller passes
// a nil error for an unconstructed value.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks a struct as built through its constructor.
// Embed it as a private field, set it with NewConstructorGuard in the
// constructor and call Validate from the struct's own Validate method:
//
//	type SweepDeadlinesCommand struct {
//	    now   time.Time
//	    guard guard.ConstructorGuard
//	}
//
//	func (c SweepDeadlinesCommand) Validate() error {
//	    return c.guard.Validate(ErrSweepDeadlinesCommandIsNotConstructed)
//	}
//
// The zero value is "not constructed". The guard is immutable and safe to
// copy and to read concurrently.
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard in the constructed state.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns nil for a constructed guard, otherwise validationError
// (or ErrDefaultConstructorGuard when validationError is nil).
func (g ConstructorGuard) Validate(validationError error) error {
	if g.isConstructed {
		return nil
	}
	if validationError == nil {
		return ErrDefaultConstructorGuard
	}
	return validationError
}

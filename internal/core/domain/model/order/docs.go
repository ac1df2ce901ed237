// Package order provides the Order aggregate and its lifecycle state machine.
//
// The package includes:
//   - Order: a committed basket bound to one weekly pickup instant
//   - Status: Placed -> Locked -> Completed, with Cancelled reachable from
//     Placed or Locked and Completed also reachable directly from Placed
//
// Key business rules:
//   - Only Placed orders accept item changes; Locked orders are past their
//     edit deadline
//   - Completed and Cancelled are terminal; any transition out of them fails
//     with ErrAlreadyTerminal
//   - The order's version is the optimistic concurrency token; it starts at 1
//     and is advanced by the persistence layer on every successful update
//
// Deadline arithmetic lives in the schedule package and the services
// EditWindow; the aggregate stores the (possibly offset) pickup instant and
// the offset that was applied to it.
package order

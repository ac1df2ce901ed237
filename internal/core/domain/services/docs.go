// Package services provides domain services that span the basket and order
// aggregates.
//
// The package includes:
//   - EditWindow: decides whether an order can still be edited at a given
//     instant, using the pickup calendar and the order's real pickup time
//   - Reconciler: compares a basket with the order it is bound to and picks
//     the order a basket should follow
//
// Both services are pure: they never mutate their inputs and hold no state
// besides the calendar.
package services

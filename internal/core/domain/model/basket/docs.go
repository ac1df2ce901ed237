// Package basket holds the owner's draft selection.
//
// Store is the single mutable basket per owner. It is safe for concurrent
// use: writers hold an exclusive lock for the whole mutation, so a reader
// taking a Snapshot never observes a half-applied bind. Every mutation
// bumps the basket revision and is pushed to subscribers as an Event.
//
// Basket is the immutable snapshot handed to readers, commands and
// persistence.
//
// A basket may be bound to one order. A bound basket is an edit of that
// order; an unbound basket is a fresh draft for a new order.
package basket

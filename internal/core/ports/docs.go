// Package ports declares the contracts between the pre-order core and its
// adapters: order persistence with optimistic concurrency, the unit of
// work, order change notifications and basket session storage.
package ports

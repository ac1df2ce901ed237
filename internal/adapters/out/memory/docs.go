// Package memory is the in-process persistence adapter. It keeps orders in
// a map guarded by a mutex and implements the same optimistic concurrency
// contract as the database adapters: writes inside a unit of work are
// staged and applied atomically on Commit, after re-checking every
// expected version.
//
// It backs the "memory" persistence driver and the engine's unit tests.
package memory

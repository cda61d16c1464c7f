// Package store is the persistence layer: upsert-by-(country,date)
// with last-writer-wins semantics on supplied columns only, point
// queries for forward-fill priming and delta computation, a bounded
// history range query, and an append-only run log. Reads may run
// concurrently; writes are single-writer, since the orchestrator runs
// one tick at a time behind its idempotency guard.
package store

import "errors"

// ErrNotFound is returned by point queries that find no matching row,
// distinct from a row existing with a null column.
var ErrNotFound = errors.New("store: not found")

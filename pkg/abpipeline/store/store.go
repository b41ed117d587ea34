// Package store persists the user_exposure and user_outcomes marts.
//
// Marts are recomputed wholesale on every pipeline run, so both backends
// replace table contents atomically instead of patching rows. SQLiteStore is
// the embedded single-process option; PostgresLoader ships the marts to the
// warehouse for BI consumption.
package store

import (
	"errors"
	"time"
)

// Sentinel errors shared by the backends.
var (
	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrNoMarts indicates a read against a store with no persisted marts.
	ErrNoMarts = errors.New("no marts persisted")
)

// Timestamps are persisted in RFC 3339 with nanoseconds so round-trips are
// byte-exact.
const timestampLayout = time.RFC3339Nano

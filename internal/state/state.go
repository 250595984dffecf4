// Package state defines the persistence interface for the pipeline's small
// amount of durable client state: the rate-limit timestamp history and the
// analysis usage counter. The rate limiter and orchestrator are written
// against this interface so tests can bind an in-memory stub.
package state

import "context"

// Fixed keys for the pipeline's persisted records.
const (
	KeyAnalysisHistory = "analysis_history"
	KeyAnalysisCount   = "analysis_count"
)

// Store persists named timestamp histories and monotonically increasing
// counters across sessions.
type Store interface {
	// History returns the stored timestamp list (milliseconds since epoch)
	// for key, oldest first. A missing key yields an empty list.
	History(ctx context.Context, key string) ([]int64, error)

	// SetHistory replaces the stored timestamp list for key.
	SetHistory(ctx context.Context, key string, timestamps []int64) error

	// Increment adds one to the named counter and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)

	// Counter returns the current value of the named counter, zero if unset.
	Counter(ctx context.Context, key string) (int64, error)

	Close() error
}

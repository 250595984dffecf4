// Package ratelimit implements the client-side cooldown gate in front of
// the analysis pipeline. Request timestamps are kept in a persisted sliding
// window; a request is allowed only while the window holds fewer than the
// configured maximum.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/styleglow/analyzer/internal/state"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed bool

	// RetryAfter is the remaining wait when blocked: window minus the age
	// of the oldest retained timestamp.
	RetryAfter time.Duration

	// Remaining is the number of request slots left in the current window.
	Remaining int
}

// Limiter enforces the sliding-window policy over a persisted history.
// The read-prune-append sequence is a critical section; the mutex keeps
// concurrent callers (multiple handler goroutines) from both observing an
// open slot.
type Limiter struct {
	store       state.Store
	window      time.Duration
	maxRequests int

	mu sync.Mutex
}

// New creates a limiter. window and maxRequests are product policy,
// injected from configuration.
func New(store state.Store, window time.Duration, maxRequests int) *Limiter {
	return &Limiter{
		store:       store,
		window:      window,
		maxRequests: maxRequests,
	}
}

// Window returns the configured cooldown window.
func (l *Limiter) Window() time.Duration { return l.window }

// MaxRequests returns the configured per-window request cap.
func (l *Limiter) MaxRequests() int { return l.maxRequests }

// Remaining reports the open slots in the current window without
// reserving one. Used by the HTTP layer for rate limit headers.
func (l *Limiter) Remaining(ctx context.Context, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	retained, err := l.pruned(ctx, now)
	if err != nil {
		return 0
	}
	if n := l.maxRequests - len(retained); n > 0 {
		return n
	}
	return 0
}

// CheckAndReserve prunes expired entries, persists the pruned history, and
// decides eligibility at the given instant. Callers that go on to complete
// a request successfully must call Commit; reservation does not itself
// consume a slot.
func (l *Limiter) CheckAndReserve(ctx context.Context, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	retained, err := l.pruned(ctx, now)
	if err != nil {
		return Decision{}, err
	}

	if len(retained) >= l.maxRequests {
		oldest := time.UnixMilli(retained[0])
		return Decision{
			Allowed:    false,
			RetryAfter: l.window - now.Sub(oldest),
		}, nil
	}

	if err := l.store.SetHistory(ctx, state.KeyAnalysisHistory, retained); err != nil {
		return Decision{}, fmt.Errorf("persist pruned history: %w", err)
	}

	return Decision{
		Allowed:   true,
		Remaining: l.maxRequests - len(retained),
	}, nil
}

// Commit appends the accepted request's timestamp and persists the record.
// Called only after the analysis completed successfully, so a failed
// attempt never consumes the user's slot.
func (l *Limiter) Commit(ctx context.Context, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	retained, err := l.pruned(ctx, now)
	if err != nil {
		return err
	}

	retained = append(retained, now.UnixMilli())
	if err := l.store.SetHistory(ctx, state.KeyAnalysisHistory, retained); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// pruned loads the history and drops entries older than the window.
// Caller must hold the mutex.
func (l *Limiter) pruned(ctx context.Context, now time.Time) ([]int64, error) {
	history, err := l.store.History(ctx, state.KeyAnalysisHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	cutoff := now.Add(-l.window).UnixMilli()
	retained := history[:0]
	for _, ts := range history {
		if ts > cutoff {
			retained = append(retained, ts)
		}
	}
	return retained, nil
}

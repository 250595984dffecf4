package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/styleglow/analyzer/internal/state"
	"github.com/styleglow/analyzer/internal/state/memory"
)

const window = 3 * time.Minute

func TestCheckAndReserve_EmptyHistoryAllows(t *testing.T) {
	store := memory.New()
	l := New(store, window, 1)

	d, err := l.CheckAndReserve(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("CheckAndReserve() error = %v", err)
	}
	if !d.Allowed {
		t.Errorf("Allowed = false, want true")
	}
	if d.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", d.Remaining)
	}
}

func TestCheckAndReserve_RecentRequestBlocks(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()

	// One accepted request 60s ago.
	store.SetHistory(ctx, state.KeyAnalysisHistory, []int64{now.Add(-time.Minute).UnixMilli()})

	l := New(store, window, 1)
	d, err := l.CheckAndReserve(ctx, now)
	if err != nil {
		t.Fatalf("CheckAndReserve() error = %v", err)
	}
	if d.Allowed {
		t.Fatal("Allowed = true, want blocked")
	}

	// Remaining wait is window - elapsed = 120s, give or take the
	// millisecond truncation in UnixMilli.
	want := 2 * time.Minute
	if diff := d.RetryAfter - want; diff < -time.Second || diff > time.Second {
		t.Errorf("RetryAfter = %v, want ~%v", d.RetryAfter, want)
	}
}

func TestCheckAndReserve_ExpiredEntriesPruned(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()

	store.SetHistory(ctx, state.KeyAnalysisHistory, []int64{
		now.Add(-10 * time.Minute).UnixMilli(),
		now.Add(-4 * time.Minute).UnixMilli(),
	})

	l := New(store, window, 1)
	d, err := l.CheckAndReserve(ctx, now)
	if err != nil {
		t.Fatalf("CheckAndReserve() error = %v", err)
	}
	if !d.Allowed {
		t.Errorf("Allowed = false, want true after pruning expired entries")
	}

	// Pruned history must have been persisted.
	hist, _ := store.History(ctx, state.KeyAnalysisHistory)
	if len(hist) != 0 {
		t.Errorf("persisted history = %v, want empty", hist)
	}
}

func TestCheckAndReserve_WindowThresholdProperty(t *testing.T) {
	// Blocked iff count of entries newer than now-W is >= max.
	ctx := context.Background()
	now := time.Now()

	cases := []struct {
		name    string
		offsets []time.Duration // ages of history entries
		max     int
		allowed bool
	}{
		{"empty max1", nil, 1, true},
		{"one fresh max1", []time.Duration{time.Minute}, 1, false},
		{"one stale max1", []time.Duration{4 * time.Minute}, 1, true},
		{"boundary just inside", []time.Duration{window - time.Second}, 1, false},
		{"boundary just outside", []time.Duration{window + time.Second}, 1, true},
		{"two fresh max3", []time.Duration{time.Minute, 2 * time.Minute}, 3, true},
		{"three fresh max3", []time.Duration{30 * time.Second, time.Minute, 2 * time.Minute}, 3, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.New()
			var hist []int64
			for _, off := range tc.offsets {
				hist = append(hist, now.Add(-off).UnixMilli())
			}
			store.SetHistory(ctx, state.KeyAnalysisHistory, hist)

			l := New(store, window, tc.max)
			d, err := l.CheckAndReserve(ctx, now)
			if err != nil {
				t.Fatalf("CheckAndReserve() error = %v", err)
			}
			if d.Allowed != tc.allowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tc.allowed)
			}
		})
	}
}

func TestCommit_ConsumesSlot(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()
	l := New(store, window, 1)

	d, err := l.CheckAndReserve(ctx, now)
	if err != nil || !d.Allowed {
		t.Fatalf("CheckAndReserve() = %+v, %v", d, err)
	}

	if err := l.Commit(ctx, now); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	d, err = l.CheckAndReserve(ctx, now.Add(time.Second))
	if err != nil {
		t.Fatalf("CheckAndReserve() error = %v", err)
	}
	if d.Allowed {
		t.Error("Allowed = true after commit, want blocked")
	}

	// Slot frees up once the window has passed.
	d, err = l.CheckAndReserve(ctx, now.Add(window+time.Second))
	if err != nil {
		t.Fatalf("CheckAndReserve() error = %v", err)
	}
	if !d.Allowed {
		t.Error("Allowed = false after window elapsed, want true")
	}
}

func TestReserveWithoutCommit_DoesNotConsumeSlot(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()
	l := New(store, window, 1)

	// Reservation without commit models a failed analysis.
	if d, _ := l.CheckAndReserve(ctx, now); !d.Allowed {
		t.Fatal("first reserve blocked")
	}
	if d, _ := l.CheckAndReserve(ctx, now.Add(time.Second)); !d.Allowed {
		t.Error("second reserve blocked; uncommitted reservation consumed the slot")
	}
}

func TestRemaining(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()
	l := New(store, window, 2)

	if got := l.Remaining(ctx, now); got != 2 {
		t.Errorf("Remaining() = %d, want 2", got)
	}

	if err := l.Commit(ctx, now); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if got := l.Remaining(ctx, now); got != 1 {
		t.Errorf("Remaining() after one commit = %d, want 1", got)
	}

	if err := l.Commit(ctx, now); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if got := l.Remaining(ctx, now); got != 0 {
		t.Errorf("Remaining() at capacity = %d, want 0", got)
	}

	// Window expiry restores capacity.
	if got := l.Remaining(ctx, now.Add(window+time.Second)); got != 2 {
		t.Errorf("Remaining() after window = %d, want 2", got)
	}
}

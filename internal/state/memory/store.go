// Package memory is an in-memory state.Store used by tests.
package memory

import (
	"context"
	"sync"

	"github.com/styleglow/analyzer/internal/state"
)

// Store is an in-memory implementation of state.Store.
type Store struct {
	mu        sync.RWMutex
	histories map[string][]int64
	counters  map[string]int64
}

var _ state.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		histories: make(map[string][]int64),
		counters:  make(map[string]int64),
	}
}

func (s *Store) History(ctx context.Context, key string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.histories[key]
	out := make([]int64, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *Store) SetHistory(ctx context.Context, key string, timestamps []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]int64, len(timestamps))
	copy(stored, timestamps)
	s.histories[key] = stored
	return nil
}

func (s *Store) Increment(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key]++
	return s.counters[key], nil
}

func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.counters[key], nil
}

func (s *Store) Close() error {
	return nil
}

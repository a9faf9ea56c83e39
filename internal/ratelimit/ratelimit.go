// Package ratelimit implements the gateway's fixed-window quota counters.
//
// The window is fixed, not sliding: a window starts at a multiple of its
// duration and every call in [start, start+window) counts against the same
// quota. Fixed windows make test expectations exact, which is why the
// gateway uses them over smoother alternatives.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of one quota check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; 0 when allowed
}

// Store counts calls per key within fixed windows. Keys are typically
// connection IDs; the counter update is atomic per (key, window), so two
// concurrent requests can never both observe an empty window.
type Store struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	used  int
}

// Option configures the store.
type Option func(*Store)

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an in-memory fixed-window store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow consumes one call from the key's current window and reports whether
// it fit under the limit.
func (s *Store) Allow(ctx context.Context, key string, limit int, windowSize time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	start := now.Truncate(windowSize)

	w, ok := s.windows[key]
	if !ok || w.start != start {
		w = &window{start: start}
		s.windows[key] = w
	}

	resetAt := start.Add(windowSize)
	if w.used >= limit {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}, nil
	}

	w.used++
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.used,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for a key. Used when a connection is revoked so a
// reissued credential starts clean.
func (s *Store) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// retryAfterSeconds rounds up so callers never retry before the window turns.
func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if resetAt.Sub(now)%time.Second != 0 || secs == 0 {
		secs++
	}
	return secs
}

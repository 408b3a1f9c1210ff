package ingest

import (
	"context"
	"sync"
)

// defaultSeenLimit bounds the delivered-run memory when no limit is given.
const defaultSeenLimit = 50000

// SeenSet is a bounded set of run IDs that have already been handed to the
// sink. When the set is full the oldest recorded ID is evicted first, so a
// very long-lived process forgets ancient runs rather than growing without
// bound. All methods are safe for concurrent use.
type SeenSet struct {
	mu   sync.Mutex
	slot map[string]int
	ring []string
	next int
}

// NewSeenSet creates a seen-set remembering at most limit IDs.
// Non-positive limits fall back to the default.
func NewSeenSet(limit int) *SeenSet {
	if limit < 1 {
		limit = defaultSeenLimit
	}
	return &SeenSet{
		slot: make(map[string]int, limit),
		ring: make([]string, limit),
	}
}

// Seen records id and reports whether it was already present.
func (s *SeenSet) Seen(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slot[id]; ok {
		return true
	}
	if old := s.ring[s.next]; old != "" {
		delete(s.slot, old)
	}
	s.ring[s.next] = id
	s.slot[id] = s.next
	s.next = (s.next + 1) % len(s.ring)
	return false
}

// Forget drops id so a later poll can deliver it again. It is used when a
// run was recorded as seen but the sink refused the batch.
func (s *SeenSet) Forget(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.slot[id]
	if !ok {
		return
	}
	delete(s.slot, id)
	s.ring[i] = ""
}

// Size returns the current number of remembered IDs.
func (s *SeenSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slot)
}

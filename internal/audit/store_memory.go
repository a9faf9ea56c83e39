package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events in memory, grouped by tenant. Appends
// only; events are never edited or removed.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TenantID] = append(s.events[event.TenantID], event)
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[tenantID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}

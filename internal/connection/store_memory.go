package connection

import (
	"context"
	"sync"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// ErrNotFound is returned when a connection is not found.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "connection not found")

// InMemory stores connections in memory. Records are stored by value and
// copied on read so callers never share mutable state with the store.
type InMemory struct {
	mu          sync.RWMutex
	connections map[id.ConnectionID]Connection
	tenantIdx   map[id.TenantID][]id.ConnectionID
}

// NewInMemory creates an in-memory connection store.
func NewInMemory() *InMemory {
	return &InMemory{
		connections: make(map[id.ConnectionID]Connection),
		tenantIdx:   make(map[id.TenantID][]id.ConnectionID),
	}
}

// Create persists a new connection.
func (s *InMemory) Create(_ context.Context, c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.connections[c.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "connection ID already exists")
	}
	s.connections[c.ID] = c
	s.tenantIdx[c.OwnerTenantID] = append(s.tenantIdx[c.OwnerTenantID], c.ID)
	return nil
}

// FindByID retrieves a connection by its ID.
func (s *InMemory) FindByID(_ context.Context, connID id.ConnectionID) (*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[connID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Update replaces an existing connection record.
func (s *InMemory) Update(_ context.Context, c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[c.ID]; !ok {
		return ErrNotFound
	}
	s.connections[c.ID] = c
	return nil
}

// ListByTenant returns all connections owned by a tenant, revoked included.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.tenantIdx[tenantID]
	out := make([]Connection, 0, len(ids))
	for _, connID := range ids {
		out = append(out, s.connections[connID])
	}
	return out, nil
}

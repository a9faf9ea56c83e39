package access

import (
	"context"
	"sync"

	id "hubgate/pkg/domain"
)

// LedgerInMemory keeps grant records in memory, in append order per
// principal. Suitable for tests and single-node runs without durability.
type LedgerInMemory struct {
	mu      sync.RWMutex
	records map[id.PrincipalID][]GrantRecord
}

func NewLedgerInMemory() *LedgerInMemory {
	return &LedgerInMemory{records: make(map[id.PrincipalID][]GrantRecord)}
}

func (l *LedgerInMemory) Append(_ context.Context, record GrantRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[record.PrincipalID] = append(l.records[record.PrincipalID], record)
	return nil
}

func (l *LedgerInMemory) ListByPrincipal(_ context.Context, principalID id.PrincipalID) ([]GrantRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	records := l.records[principalID]
	out := make([]GrantRecord, len(records))
	copy(out, records)
	return out, nil
}

package access

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hubgate/pkg/domain"
)

func openTestLedger(t *testing.T) *LedgerSQLite {
	t.Helper()
	ledger, err := NewLedgerSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	ledger := openTestLedger(t)
	principal := id.PrincipalID(uuid.New())
	actor := id.PrincipalID(uuid.New())

	record := GrantRecord{
		ID:            id.GrantID(uuid.New()),
		Kind:          RecordGrant,
		PrincipalID:   principal,
		PrincipalType: PrincipalServiceIdentity,
		ResourceScope: "search-index",
		Capability:    CapReadIndexData,
		Actor:         actor,
		RecordedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ledger.Append(context.Background(), record))

	records, err := ledger.ListByPrincipal(context.Background(), principal)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record, records[0])
}

func TestSQLiteLedgerPreservesAppendOrder(t *testing.T) {
	ledger := openTestLedger(t)
	principal := id.PrincipalID(uuid.New())
	actor := id.PrincipalID(uuid.New())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	kinds := []RecordKind{RecordGrant, RecordRevoke, RecordGrant}
	for _, kind := range kinds {
		require.NoError(t, ledger.Append(context.Background(), GrantRecord{
			ID:            id.GrantID(uuid.New()),
			Kind:          kind,
			PrincipalID:   principal,
			PrincipalType: PrincipalUser,
			ResourceScope: "hub",
			Capability:    CapInvokeModel,
			Actor:         actor,
			RecordedAt:    at, // identical timestamps: rowid ordering must hold
		}))
	}

	records, err := ledger.ListByPrincipal(context.Background(), principal)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, kind := range kinds {
		assert.Equal(t, kind, records[i].Kind)
	}
}

func TestSQLiteLedgerBacksEnforcer(t *testing.T) {
	ledger := openTestLedger(t)
	svc := New(ledger)
	admin := newUser()
	agent := newServiceIdentity()

	_, err := svc.Grant(context.Background(), admin, agent, "search-index", CapReadIndexData)
	require.NoError(t, err)

	allowed, err := svc.Check(context.Background(), agent.ID, "search-index", CapReadIndexData)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, svc.Revoke(context.Background(), admin, agent, "search-index", CapReadIndexData))
	allowed, err = svc.Check(context.Background(), agent.ID, "search-index", CapReadIndexData)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSQLiteLedgerListUnknownPrincipal(t *testing.T) {
	ledger := openTestLedger(t)

	records, err := ledger.ListByPrincipal(context.Background(), id.PrincipalID(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, records)
}

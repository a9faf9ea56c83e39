package audit

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsEnrichedEvent(t *testing.T) {
	store := NewInMemoryStore()
	logger := NewLogger(slog.Default(), store)
	ctx := context.Background()

	logger.Record(ctx, ActionConnectionIssued, Event{
		TenantID: "k3xzpa",
		Subject:  "conn-1",
		Outcome:  "issued",
	})

	events, err := store.ListByTenant(ctx, "k3xzpa")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(ActionConnectionIssued), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is filled when absent")
}

func TestRecordWithoutEmitterOnlyLogs(t *testing.T) {
	logger := NewLogger(slog.Default(), nil)
	assert.NotPanics(t, func() {
		logger.Record(context.Background(), ActionGrantDenied, Event{TenantID: "k3xzpa"})
	})
}

func TestListByTenantReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, Event{TenantID: "k3xzpa", Subject: "a"}))

	first, err := store.ListByTenant(ctx, "k3xzpa")
	require.NoError(t, err)
	first[0].Subject = "mutated"

	second, err := store.ListByTenant(ctx, "k3xzpa")
	require.NoError(t, err)
	assert.Equal(t, "a", second[0].Subject)
}

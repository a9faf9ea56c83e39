package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

func testSpecs() []Spec {
	return []Spec{
		{BackendID: id.BackendID("aoai-eastus-1"), Region: "eastus", CapacityUnits: 100, ModelName: "gpt-4o"},
		{BackendID: id.BackendID("aoai-westeu-1"), Region: "westeurope", CapacityUnits: 50, ModelName: "gpt-4o-mini"},
	}
}

func TestWaitAllReturnsResultsInInputOrder(t *testing.T) {
	engine := NewFakeEngine()
	waiter := NewWaiter(engine, WithPollInterval(time.Millisecond), WithTimeout(time.Second))

	results, err := waiter.WaitAll(context.Background(), testSpecs())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, id.BackendID("aoai-eastus-1"), results[0].BackendID)
	assert.Equal(t, id.BackendID("aoai-westeu-1"), results[1].BackendID)
	for _, r := range results {
		assert.NotEmpty(t, r.EndpointURL)
		assert.False(t, r.PrincipalID.IsNil(), "every deployment gets its own service identity")
	}
	assert.NotEqual(t, results[0].PrincipalID, results[1].PrincipalID)
}

func TestWaitAllPollsUntilReady(t *testing.T) {
	engine := NewFakeEngine()
	engine.ReadyAfterPolls = 3
	waiter := NewWaiter(engine, WithPollInterval(time.Millisecond), WithTimeout(time.Second))

	results, err := waiter.WaitAll(context.Background(), testSpecs()[:1])
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestWaitAllTimesOut(t *testing.T) {
	engine := NewFakeEngine()
	engine.ReadyAfterPolls = 1 << 30
	waiter := NewWaiter(engine, WithPollInterval(time.Millisecond), WithTimeout(20*time.Millisecond))

	_, err := waiter.WaitAll(context.Background(), testSpecs()[:1])
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestWaitAllRejectsInvalidSpec(t *testing.T) {
	waiter := NewWaiter(NewFakeEngine(), WithPollInterval(time.Millisecond), WithTimeout(time.Second))

	_, err := waiter.WaitAll(context.Background(), []Spec{{Region: "eastus"}})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestFakeEngineUnknownTicket(t *testing.T) {
	_, err := NewFakeEngine().Check(context.Background(), TicketID("nope"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

func newUser() Principal {
	return Principal{ID: id.PrincipalID(uuid.New()), Type: PrincipalUser}
}

func newServiceIdentity() Principal {
	return Principal{ID: id.PrincipalID(uuid.New()), Type: PrincipalServiceIdentity}
}

func TestGrantAndCheck(t *testing.T) {
	svc := New(NewLedgerInMemory())
	admin := newUser()
	agent := newServiceIdentity()

	allowed, err := svc.Check(context.Background(), agent.ID, "search-index", CapReadIndexData)
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = svc.Grant(context.Background(), admin, agent, "search-index", CapReadIndexData)
	require.NoError(t, err)

	allowed, err = svc.Check(context.Background(), agent.ID, "search-index", CapReadIndexData)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Scope and capability are both part of the triple.
	allowed, err = svc.Check(context.Background(), agent.ID, "other-scope", CapReadIndexData)
	require.NoError(t, err)
	assert.False(t, allowed)
	allowed, err = svc.Check(context.Background(), agent.ID, "search-index", CapManageDeployments)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestServiceIdentitySelfGrantGuard(t *testing.T) {
	svc := New(NewLedgerInMemory())
	agent := newServiceIdentity()

	t.Run("self-grantable capability allowed", func(t *testing.T) {
		_, err := svc.Grant(context.Background(), agent, agent, "spoke-resources", CapInvokeOwnResources)
		assert.NoError(t, err)
	})

	t.Run("administrative capability denied", func(t *testing.T) {
		_, err := svc.Grant(context.Background(), agent, agent, "hub", CapManageDeployments)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

		allowed, checkErr := svc.Check(context.Background(), agent.ID, "hub", CapManageDeployments)
		require.NoError(t, checkErr)
		assert.False(t, allowed, "denied grant must leave no ledger trace of access")
	})

	t.Run("grant to another principal denied", func(t *testing.T) {
		other := newServiceIdentity()
		_, err := svc.Grant(context.Background(), agent, other, "spoke-resources", CapInvokeOwnResources)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("user may grant anything", func(t *testing.T) {
		admin := newUser()
		_, err := svc.Grant(context.Background(), admin, agent, "hub", CapManageDeployments)
		assert.NoError(t, err)
	})
}

func TestRevokeSupersedesWithoutErasing(t *testing.T) {
	svc := New(NewLedgerInMemory())
	admin := newUser()
	agent := newServiceIdentity()

	_, err := svc.Grant(context.Background(), admin, agent, "search-index", CapReadIndexData)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), admin, agent, "search-index", CapReadIndexData))

	allowed, err := svc.Check(context.Background(), agent.ID, "search-index", CapReadIndexData)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Both rows survive in the ledger.
	history, err := svc.History(context.Background(), agent.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RecordGrant, history[0].Kind)
	assert.Equal(t, RecordRevoke, history[1].Kind)

	// Revoking an inactive grant is a no-op, not an error or a third row.
	require.NoError(t, svc.Revoke(context.Background(), admin, agent, "search-index", CapReadIndexData))
	history, err = svc.History(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRegrantAfterRevoke(t *testing.T) {
	svc := New(NewLedgerInMemory())
	admin := newUser()
	agent := newServiceIdentity()

	_, err := svc.Grant(context.Background(), admin, agent, "s", CapInvokeModel)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), admin, agent, "s", CapInvokeModel))
	_, err = svc.Grant(context.Background(), admin, agent, "s", CapInvokeModel)
	require.NoError(t, err)

	allowed, err := svc.Check(context.Background(), agent.ID, "s", CapInvokeModel)
	require.NoError(t, err)
	assert.True(t, allowed, "latest row wins")
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("invoke-model")
	require.NoError(t, err)
	assert.Equal(t, CapInvokeModel, c)

	_, err = ParseCapability("drop-tables")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

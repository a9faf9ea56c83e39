package gateway

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubgate/internal/connection"
	"hubgate/internal/ratelimit"
	"hubgate/internal/registry"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

func newState(policy registry.RoutePolicy) *RequestState {
	return &RequestState{
		Conn: &connection.Connection{ID: id.ConnectionID{}},
		Rule: &registry.RoutingRule{
			Deployment: registry.PhysicalDeployment{BackendID: id.BackendID("be-1"), Region: "eastus"},
			Policy:     policy,
		},
		Query:  url.Values{},
		Header: http.Header{},
	}
}

func TestInjectDefaultParam(t *testing.T) {
	step := InjectDefaultParam{Param: "api-version", Default: "2024-10-21"}

	t.Run("fills missing parameter", func(t *testing.T) {
		state := newState(registry.RoutePolicy{})
		require.NoError(t, step.Apply(context.Background(), state))
		assert.Equal(t, "2024-10-21", state.Query.Get("api-version"))
	})

	t.Run("caller value is never overridden", func(t *testing.T) {
		state := newState(registry.RoutePolicy{})
		state.Query.Set("api-version", "2023-01-01")
		require.NoError(t, step.Apply(context.Background(), state))
		assert.Equal(t, "2023-01-01", state.Query.Get("api-version"))
	})

	t.Run("rule policy overrides gateway default", func(t *testing.T) {
		state := newState(registry.RoutePolicy{DefaultAPIVersion: "2025-01-01"})
		require.NoError(t, step.Apply(context.Background(), state))
		assert.Equal(t, "2025-01-01", state.Query.Get("api-version"))
	})

	t.Run("no default means no injection", func(t *testing.T) {
		state := newState(registry.RoutePolicy{})
		require.NoError(t, InjectDefaultParam{Param: "api-version"}.Apply(context.Background(), state))
		assert.False(t, state.Query.Has("api-version"))
	})
}

type fakeExchanger struct {
	credential string
	err        error
}

func (f fakeExchanger) Exchange(context.Context, string, string) (string, error) {
	return f.credential, f.err
}

func TestSubstituteCredentialStripsCallerAuth(t *testing.T) {
	step := SubstituteCredential{Exchanger: fakeExchanger{credential: "minted"}}

	state := newState(registry.RoutePolicy{})
	state.Header.Set("Authorization", "Bearer tenant-credential")
	state.Header.Set("Api-Key", "smuggled-backend-key")

	require.NoError(t, step.Apply(context.Background(), state))
	assert.Empty(t, state.Header.Get("Authorization"))
	assert.Empty(t, state.Header.Get("Api-Key"))
	assert.Equal(t, "minted", state.BackendCredential)
}

func TestSubstituteCredentialScopeFallback(t *testing.T) {
	var gotScope string
	step := SubstituteCredential{Exchanger: exchangerFunc(func(_ context.Context, scope, _ string) (string, error) {
		gotScope = scope
		return "minted", nil
	})}

	state := newState(registry.RoutePolicy{})
	require.NoError(t, step.Apply(context.Background(), state))
	assert.Equal(t, "be-1", gotScope, "empty policy scope falls back to the backend ID")

	state = newState(registry.RoutePolicy{CredentialScope: "shared-pool"})
	require.NoError(t, step.Apply(context.Background(), state))
	assert.Equal(t, "shared-pool", gotScope)
}

type exchangerFunc func(ctx context.Context, scope, region string) (string, error)

func (f exchangerFunc) Exchange(ctx context.Context, scope, region string) (string, error) {
	return f(ctx, scope, region)
}

func TestRateLimitPolicyOverride(t *testing.T) {
	step := RateLimit{Limiter: ratelimit.NewStore(), Calls: 100, Window: time.Minute}
	state := newState(registry.RoutePolicy{RateLimitCalls: 1, RateLimitWindow: time.Minute})

	require.NoError(t, step.Apply(context.Background(), state))

	err := step.Apply(context.Background(), state)
	require.Error(t, err, "rule policy limit of 1 call must win over the gateway default")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, limited.RetryAfter, state.RetryAfter)
}

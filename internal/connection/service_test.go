package connection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubgate/internal/registry"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

func testCatalog(t *testing.T, models ...string) *registry.Service {
	t.Helper()
	svc := registry.New()
	for _, name := range models {
		_, err := svc.Register(context.Background(),
			registry.LogicalModel{Name: name, Format: "OpenAI", Version: "1"},
			registry.PhysicalDeployment{
				BackendID:   id.BackendID(name + "-eastus2"),
				Region:      "eastus2",
				EndpointURL: "https://hub.example.net/openai",
			},
			registry.RoutePolicy{},
		)
		require.NoError(t, err)
	}
	return svc
}

func TestIssueValidatesAgainstRegistry(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	store := NewInMemory()
	svc := New(store, catalog)

	t.Run("unknown model fails with no partial state", func(t *testing.T) {
		_, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini", "gpt-9000"}, "gateway")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownModel))

		conns, err := store.ListByTenant(context.Background(), "k7x2qa")
		require.NoError(t, err)
		assert.Empty(t, conns, "failed issue must not persist a connection")
	})

	t.Run("known models succeed", func(t *testing.T) {
		issued, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
		require.NoError(t, err)
		assert.NotEmpty(t, issued.Credential)
		assert.Equal(t, []string{"gpt-4.1-mini"}, issued.Connection.ModelAllowList)
		assert.NotEmpty(t, issued.Connection.SecretHash, "hash must be stored")
	})
}

func TestIssueDeduplicatesAllowListKeepingOrder(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini", "phi-4")
	svc := New(NewInMemory(), catalog)

	issued, err := svc.Issue(context.Background(), "k7x2qa",
		[]string{"phi-4", "gpt-4.1-mini", "phi-4"}, "gateway")
	require.NoError(t, err)
	assert.Equal(t, []string{"phi-4", "gpt-4.1-mini"}, issued.Connection.ModelAllowList)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	svc := New(NewInMemory(), catalog)

	issued, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	require.NoError(t, err)

	conn, err := svc.Authenticate(context.Background(), issued.Credential)
	require.NoError(t, err)
	assert.Equal(t, issued.Connection.ID, conn.ID)
	assert.True(t, conn.Allows("gpt-4.1-mini"))
	assert.False(t, conn.Allows("phi-4"))
}

func TestAuthenticateRejections(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	svc := New(NewInMemory(), catalog)

	issued, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	require.NoError(t, err)

	cases := map[string]string{
		"malformed":      "not-a-credential",
		"missing secret": issued.Connection.ID.String() + ".",
		"unknown id":     "0b1f6471-1bf0-4dda-aec3-cb9272f09590.somesecret",
		"wrong secret":   issued.Connection.ID.String() + ".wrongsecret",
	}
	for name, cred := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), cred)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
		})
	}
}

func TestRotatePreservesIdentityAndCutsOverHard(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	svc := New(NewInMemory(), catalog)

	issued, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	require.NoError(t, err)

	rotated, err := svc.Rotate(context.Background(), issued.Connection.ID)
	require.NoError(t, err)

	assert.Equal(t, issued.Connection.ID, rotated.Connection.ID)
	assert.Equal(t, issued.Connection.ModelAllowList, rotated.Connection.ModelAllowList)
	assert.NotEqual(t, issued.Credential, rotated.Credential)

	// Old material is invalid immediately; new material works.
	_, err = svc.Authenticate(context.Background(), issued.Credential)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	_, err = svc.Authenticate(context.Background(), rotated.Credential)
	assert.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	svc := New(NewInMemory(), catalog)

	issued, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), issued.Connection.ID))

	_, err = svc.Authenticate(context.Background(), issued.Credential)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	// Idempotent.
	assert.NoError(t, svc.Revoke(context.Background(), issued.Connection.ID))

	// Revoked connections cannot be rotated back to life.
	_, err = svc.Rotate(context.Background(), issued.Connection.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRevokeUnknownConnection(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	svc := New(NewInMemory(), catalog)

	err := svc.Revoke(context.Background(), id.ConnectionID{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	unknown, parseErr := id.ParseConnectionID("0b1f6471-1bf0-4dda-aec3-cb9272f09590")
	require.NoError(t, parseErr)
	err = svc.Revoke(context.Background(), unknown)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestIssueSeesRegistryVersionAtCallTime(t *testing.T) {
	catalog := registry.New()
	svc := New(NewInMemory(), catalog)

	_, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownModel))

	_, err = catalog.Register(context.Background(),
		registry.LogicalModel{Name: "gpt-4.1-mini", Format: "OpenAI", Version: "1"},
		registry.PhysicalDeployment{
			BackendID:   "gpt-4-1-mini-eastus2",
			Region:      "eastus2",
			EndpointURL: "https://hub.example.net/openai",
		},
		registry.RoutePolicy{},
	)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	assert.NoError(t, err)
}

func TestClockInjection(t *testing.T) {
	catalog := testCatalog(t, "gpt-4.1-mini")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := New(NewInMemory(), catalog, WithClock(func() time.Time { return at }))

	issued, err := svc.Issue(context.Background(), "k7x2qa", []string{"gpt-4.1-mini"}, "gateway")
	require.NoError(t, err)
	assert.Equal(t, at, issued.Connection.CreatedAt)
}

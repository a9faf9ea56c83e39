package seeder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubgate/internal/access"
	"hubgate/internal/connection"
	"hubgate/internal/platform/config"
	"hubgate/internal/provision"
	"hubgate/internal/registry"
	dErrors "hubgate/pkg/domain-errors"
)

func testConfig() *config.Config {
	return &config.Config{
		Hub: config.Hub{
			Subscription:  "sub-001",
			ResourceGroup: "rg-hub",
			Environment:   "test",
		},
		Models: []config.Model{
			{Name: "gpt-4o", Format: "OpenAI", Version: "2024-05-13"},
			{Name: "embed-3", Format: "OpenAI", Version: "3"},
		},
		Deployments: []config.Deployment{
			{BackendID: "aoai-east-1", Model: "gpt-4o", Region: "eastus", CapacityUnits: 100, EndpointURL: "https://east.example.com"},
			{BackendID: "aoai-west-1", Model: "embed-3", Region: "westus", CapacityUnits: 50, EndpointURL: "https://west.example.com"},
		},
		Tenants: []config.Tenant{
			{DisplayName: "Team Atlas", Models: []string{"gpt-4o"}},
			{DisplayName: "Team Borealis", Models: []string{"gpt-4o", "embed-3"}},
		},
	}
}

func newSeeder(t *testing.T, opts ...Option) (*Seeder, *registry.Service, *connection.Service, *access.Service) {
	t.Helper()
	reg := registry.New()
	conns := connection.New(connection.NewInMemory(), reg)
	enforcer := access.New(access.NewLedgerInMemory())
	return New(reg, conns, enforcer, opts...), reg, conns, enforcer
}

func TestSeedFullConfig(t *testing.T) {
	s, reg, conns, enforcer := newSeeder(t)
	ctx := context.Background()

	report, err := s.Seed(ctx, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, report.RulesRegistered)
	require.Len(t, report.Tenants, 2)

	// Rules are resolvable.
	for _, name := range []string{"gpt-4o", "embed-3"} {
		_, err := reg.Snapshot().Resolve(name)
		assert.NoError(t, err, name)
	}

	// Names are deterministic per hub seed and distinct per tenant.
	assert.NotEqual(t, report.Tenants[0].TenantID, report.Tenants[1].TenantID)
	again, err := s.Seed(ctx, testConfig())
	require.NoError(t, err)
	assert.Equal(t, report.Tenants[0].TenantID, again.Tenants[0].TenantID)

	// Issued credentials authenticate.
	conn, err := conns.Authenticate(ctx, report.Tenants[0].Credential)
	require.NoError(t, err)
	assert.Equal(t, report.Tenants[0].TenantID, conn.OwnerTenantID)
	assert.True(t, conn.Allows("gpt-4o"))
	assert.False(t, conn.Allows("embed-3"))

	// The gateway principal can invoke both backends.
	for _, backend := range []string{"aoai-east-1", "aoai-west-1"} {
		ok, err := enforcer.Check(ctx, report.GatewayPrincipal, backend, access.CapInvokeModel)
		require.NoError(t, err)
		assert.True(t, ok, backend)
	}
}

func TestSeedProvisionsMissingEndpoints(t *testing.T) {
	engine := provision.NewFakeEngine()
	waiter := provision.NewWaiter(engine, provision.WithPollInterval(time.Millisecond), provision.WithTimeout(time.Second))
	s, reg, _, _ := newSeeder(t, WithWaiter(waiter))

	cfg := testConfig()
	cfg.Deployments[0].EndpointURL = ""

	_, err := s.Seed(context.Background(), cfg)
	require.NoError(t, err)

	rule, err := reg.Snapshot().Resolve("gpt-4o")
	require.NoError(t, err)
	assert.NotEmpty(t, rule.Deployment.EndpointURL, "provisioned endpoint must land in the routing rule")
}

func TestSeedWithoutWaiterRejectsUnprovisionedDeployment(t *testing.T) {
	s, _, _, _ := newSeeder(t)

	cfg := testConfig()
	cfg.Deployments[0].EndpointURL = ""

	_, err := s.Seed(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSeedUndeclaredModel(t *testing.T) {
	s, _, _, _ := newSeeder(t)

	cfg := testConfig()
	cfg.Deployments[0].Model = "phantom"

	_, err := s.Seed(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

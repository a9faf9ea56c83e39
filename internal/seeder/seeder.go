// Package seeder turns the declarative config lists into live hub state at
// startup: it provisions deployments that lack an endpoint, registers
// routing rules, onboards tenants under allocated names, grants the gateway
// its backend capabilities, and issues each tenant's first connection.
//
// This replaces maintaining the same declarations by hand per spoke; the
// config lists are the single source of truth.
package seeder

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"hubgate/internal/access"
	"hubgate/internal/connection"
	"hubgate/internal/naming"
	"hubgate/internal/platform/config"
	"hubgate/internal/provision"
	"hubgate/internal/registry"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// SeededTenant reports one onboarded tenant. Credential is the plaintext
// connection credential, available only in this report.
type SeededTenant struct {
	TenantID     id.TenantID
	DisplayName  string
	ConnectionID id.ConnectionID
	Credential   string
}

// Report is the outcome of a seeding run.
type Report struct {
	GatewayPrincipal id.PrincipalID
	RulesRegistered  int
	Tenants          []SeededTenant
}

// Seeder wires the hub's services together for the startup run.
type Seeder struct {
	registry    *registry.Service
	connections *connection.Service
	enforcer    *access.Service
	waiter      *provision.Waiter
	logger      *slog.Logger
}

// Option configures the Seeder.
type Option func(*Seeder)

// WithLogger sets the logger for the seeder.
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// WithWaiter enables provisioning of deployments that have no endpoint URL
// in config. Without a waiter such deployments fail the run.
func WithWaiter(w *provision.Waiter) Option {
	return func(s *Seeder) { s.waiter = w }
}

func New(reg *registry.Service, conns *connection.Service, enforcer *access.Service, opts ...Option) *Seeder {
	if reg == nil {
		panic("seeder.New: registry is required")
	}
	if conns == nil {
		panic("seeder.New: connection broker is required")
	}
	if enforcer == nil {
		panic("seeder.New: access enforcer is required")
	}
	s := &Seeder{
		registry:    reg,
		connections: conns,
		enforcer:    enforcer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed applies the full config in dependency order: deployments first, then
// routing rules, gateway grants, and finally tenants. It stops at the first
// error; seeding is a startup action and a half-seeded hub should not serve.
func (s *Seeder) Seed(ctx context.Context, cfg *config.Config) (*Report, error) {
	deployments, err := s.ensureEndpoints(ctx, cfg)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GatewayPrincipal: id.PrincipalID(uuid.New()),
	}
	operator := access.Principal{ID: id.PrincipalID(uuid.New()), Type: access.PrincipalUser}
	gateway := access.Principal{ID: report.GatewayPrincipal, Type: access.PrincipalServiceIdentity}

	models := make(map[string]config.Model, len(cfg.Models))
	for _, m := range cfg.Models {
		models[m.Name] = m
	}

	for _, d := range deployments {
		m, ok := models[d.Model]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation,
				"deployment "+d.BackendID+" references undeclared model "+d.Model)
		}

		_, err := s.registry.Register(ctx,
			registry.LogicalModel{
				Name:           m.Name,
				Format:         m.Format,
				Version:        m.Version,
				AllowedRegions: m.AllowedRegions,
			},
			registry.PhysicalDeployment{
				BackendID:     id.BackendID(d.BackendID),
				Region:        d.Region,
				CapacityUnits: d.CapacityUnits,
				EndpointURL:   d.EndpointURL,
			},
			registry.RoutePolicy{},
		)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registering rule for "+m.Name)
		}
		report.RulesRegistered++

		if _, err := s.enforcer.Grant(ctx, operator, gateway, d.BackendID, access.CapInvokeModel); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "granting gateway access to "+d.BackendID)
		}
	}

	for _, t := range cfg.Tenants {
		seeded, err := s.onboardTenant(ctx, cfg.Hub, t)
		if err != nil {
			return nil, err
		}
		report.Tenants = append(report.Tenants, *seeded)
	}

	s.logger.InfoContext(ctx, "hub seeded",
		slog.Int("rules", report.RulesRegistered),
		slog.Int("tenants", len(report.Tenants)),
	)
	return report, nil
}

// ensureEndpoints provisions every deployment missing an endpoint URL and
// returns the full deployment list with endpoints filled in.
func (s *Seeder) ensureEndpoints(ctx context.Context, cfg *config.Config) ([]config.Deployment, error) {
	var pending []provision.Spec
	var pendingIdx []int
	deployments := make([]config.Deployment, len(cfg.Deployments))
	copy(deployments, cfg.Deployments)

	for i, d := range deployments {
		if d.EndpointURL != "" {
			continue
		}
		pending = append(pending, provision.Spec{
			BackendID:     id.BackendID(d.BackendID),
			Region:        d.Region,
			CapacityUnits: d.CapacityUnits,
			ModelName:     d.Model,
		})
		pendingIdx = append(pendingIdx, i)
	}
	if len(pending) == 0 {
		return deployments, nil
	}
	if s.waiter == nil {
		return nil, dErrors.New(dErrors.CodeValidation,
			"deployments without endpoint URLs require a provisioning engine")
	}

	results, err := s.waiter.WaitAll(ctx, pending)
	if err != nil {
		return nil, err
	}
	for j, r := range results {
		deployments[pendingIdx[j]].EndpointURL = r.EndpointURL
	}
	return deployments, nil
}

func (s *Seeder) onboardTenant(ctx context.Context, hub config.Hub, t config.Tenant) (*SeededTenant, error) {
	tenantID, err := naming.Allocate(naming.TenantContext{
		Subscription:  hub.Subscription,
		ResourceGroup: hub.ResourceGroup,
		DisplayName:   t.DisplayName,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "allocating name for "+t.DisplayName)
	}

	issued, err := s.connections.Issue(ctx, tenantID, t.Models, "https://hub/"+tenantID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issuing connection for "+t.DisplayName)
	}

	s.logger.InfoContext(ctx, "tenant onboarded",
		slog.String("tenant_id", tenantID.String()),
		slog.String("display_name", t.DisplayName),
	)
	return &SeededTenant{
		TenantID:     tenantID,
		DisplayName:  t.DisplayName,
		ConnectionID: issued.Connection.ID,
		Credential:   issued.Credential,
	}, nil
}

// Package connection implements the broker that issues, rotates, and revokes
// the scoped credentials tenants use against the gateway.
//
// Credential indirection is the point: the secret handed out here only
// authenticates to the gateway. Backends never see it; the gateway
// substitutes its own backend-scoped credential at dispatch time.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hubgate/internal/audit"
	"hubgate/internal/registry"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
	"hubgate/pkg/secrets"
)

// Catalog is the broker's read view of the model registry. Issue validates
// the whole requested set against one snapshot.
type Catalog interface {
	Snapshot() *registry.Snapshot
}

// Store is the persistence port for connections.
type Store interface {
	Create(ctx context.Context, c Connection) error
	FindByID(ctx context.Context, connID id.ConnectionID) (*Connection, error)
	Update(ctx context.Context, c Connection) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Connection, error)
}

// Service orchestrates the connection lifecycle. Issuance, rotation, and
// revocation are not hot-path operations, so one mutex serializes all
// writes; authentication only reads.
type Service struct {
	mu      sync.Mutex
	store   Store
	catalog Catalog

	auditor *audit.Logger
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics collector for the service.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor sets the audit logger for lifecycle events.
func WithAuditor(a *audit.Logger) Option {
	return func(s *Service) { s.auditor = a }
}

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a connection broker. Store and catalog are required; the
// service panics without them - fail fast at startup.
func New(store Store, catalog Catalog, opts ...Option) *Service {
	if store == nil {
		panic("connection.New: store is required")
	}
	if catalog == nil {
		panic("connection.New: catalog is required")
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a connection for a tenant scoped to the requested models.
// Every requested model is validated against a single registry snapshot; one
// unknown name fails the whole call with UnknownModel and persists nothing.
// Duplicate names collapse, first occurrence keeps its position.
func (s *Service) Issue(ctx context.Context, tenantID id.TenantID, requestedModels []string, target string) (*IssuedConnection, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID is required")
	}
	if len(requestedModels) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one model is required")
	}

	snapshot := s.catalog.Snapshot()
	allowList := make([]string, 0, len(requestedModels))
	seen := make(map[string]struct{}, len(requestedModels))
	for _, name := range requestedModels {
		if !snapshot.Known(name) {
			return nil, dErrors.New(dErrors.CodeUnknownModel, "model "+name+" is not registered with the hub")
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		allowList = append(allowList, name)
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn := Connection{
		ID:             id.ConnectionID(uuid.New()),
		OwnerTenantID:  tenantID,
		GatewayTarget:  target,
		SecretHash:     hash,
		ModelAllowList: allowList,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Create(ctx, conn); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist connection")
	}

	s.recordAudit(ctx, audit.ActionConnectionIssued, conn, "issued")
	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}
	return &IssuedConnection{
		Connection: conn,
		Credential: formatCredential(conn.ID, secret),
	}, nil
}

// Rotate regenerates the connection's credential material while preserving
// its identity and allow-list. Hard cutover: the old credential stops
// verifying the moment the new hash is stored, with no grace overlap.
func (s *Service) Rotate(ctx context.Context, connID id.ConnectionID) (*IssuedConnection, error) {
	if connID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "connection ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.store.FindByID(ctx, connID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if conn.Revoked {
		return nil, dErrors.New(dErrors.CodeConflict, "cannot rotate a revoked connection")
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, err
	}

	conn.SecretHash = hash
	conn.RotatedAt = s.now().UTC()
	if err := s.store.Update(ctx, *conn); err != nil {
		return nil, wrapStoreErr(err)
	}

	s.recordAudit(ctx, audit.ActionConnectionRotated, *conn, "rotated")
	if s.metrics != nil {
		s.metrics.IncrementRotated()
	}
	return &IssuedConnection{
		Connection: *conn,
		Credential: formatCredential(conn.ID, secret),
	}, nil
}

// Revoke makes the connection permanently unusable. Idempotent: revoking an
// already-revoked connection succeeds without a second audit entry.
func (s *Service) Revoke(ctx context.Context, connID id.ConnectionID) error {
	if connID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "connection ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.store.FindByID(ctx, connID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if conn.Revoked {
		return nil
	}

	conn.Revoked = true
	conn.RevokedAt = s.now().UTC()
	if err := s.store.Update(ctx, *conn); err != nil {
		return wrapStoreErr(err)
	}

	s.recordAudit(ctx, audit.ActionConnectionRevoked, *conn, "revoked")
	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}
	return nil
}

// Authenticate maps a presented credential to its live connection. Malformed
// credentials, unknown IDs, hash mismatches, and revoked connections all
// collapse into Unauthenticated so callers cannot probe which part failed.
func (s *Service) Authenticate(ctx context.Context, credential string) (*Connection, error) {
	connID, secret, err := parseCredential(credential)
	if err != nil {
		s.countAuthFailure()
		return nil, err
	}

	conn, err := s.store.FindByID(ctx, connID)
	if err != nil {
		s.countAuthFailure()
		return nil, errUnauthenticated()
	}
	if conn.Revoked {
		s.countAuthFailure()
		return nil, errUnauthenticated()
	}
	if err := secrets.Verify(secret, conn.SecretHash); err != nil {
		s.countAuthFailure()
		return nil, errUnauthenticated()
	}
	return conn, nil
}

// Get retrieves a connection by ID for the admin API.
func (s *Service) Get(ctx context.Context, connID id.ConnectionID) (*Connection, error) {
	if connID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "connection ID is required")
	}
	conn, err := s.store.FindByID(ctx, connID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return conn, nil
}

// ListByTenant returns all of a tenant's connections.
func (s *Service) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Connection, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID is required")
	}
	return s.store.ListByTenant(ctx, tenantID)
}

func (s *Service) recordAudit(ctx context.Context, action audit.Action, conn Connection, outcome string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, action, audit.Event{
		TenantID: conn.OwnerTenantID.String(),
		Subject:  conn.ID.String(),
		Outcome:  outcome,
	})
}

func (s *Service) countAuthFailure() {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures()
	}
}

func errUnauthenticated() error {
	return dErrors.New(dErrors.CodeUnauthenticated, "invalid or revoked connection credential")
}

func wrapStoreErr(err error) error {
	if errors.Is(err, ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "connection not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "connection store failure")
}

func formatCredential(connID id.ConnectionID, secret string) string {
	return connID.String() + credentialSeparator + secret
}

func parseCredential(credential string) (id.ConnectionID, string, error) {
	idPart, secret, found := strings.Cut(credential, credentialSeparator)
	if !found || secret == "" {
		return id.ConnectionID{}, "", errUnauthenticated()
	}
	connID, err := id.ParseConnectionID(idPart)
	if err != nil {
		return id.ConnectionID{}, "", errUnauthenticated()
	}
	return connID, secret, nil
}

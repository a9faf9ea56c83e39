// Package access is the policy enforcer deciding which principals may reach
// hub resources directly. Capabilities are coarse named sets; the ledger is
// append-mostly so an audit trail always exists.
package access

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hubgate/internal/audit"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// Ledger is the persistence port for grant records. Implementations append
// and list; they never update rows.
type Ledger interface {
	Append(ctx context.Context, record GrantRecord) error
	ListByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]GrantRecord, error)
}

// Service evaluates and records capability grants.
type Service struct {
	ledger  Ledger
	auditor *audit.Logger
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAuditor sets the audit logger for grant decisions.
func WithAuditor(a *audit.Logger) Option {
	return func(s *Service) { s.auditor = a }
}

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the enforcer. The ledger is required; the service panics
// without it - fail fast at startup.
func New(ledger Ledger, opts ...Option) *Service {
	if ledger == nil {
		panic("access.New: ledger is required")
	}
	s := &Service{
		ledger: ledger,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant records that target may exercise capability against resourceScope.
// Service identities may only self-grant capabilities explicitly marked
// self-grantable; anything wider fails with Unauthorized and is audited as a
// denial. Granting an already-active capability appends a superseding row
// rather than erroring, so re-running onboarding converges.
func (s *Service) Grant(ctx context.Context, actor Principal, target Principal, resourceScope string, capability Capability) (*GrantRecord, error) {
	if err := validateGrantInput(actor, target, resourceScope); err != nil {
		return nil, err
	}

	if actor.Type == PrincipalServiceIdentity {
		if actor.ID != target.ID {
			return nil, s.deny(ctx, actor, resourceScope, capability,
				"service identities cannot grant to other principals")
		}
		if !capability.SelfGrantable() {
			return nil, s.deny(ctx, actor, resourceScope, capability,
				"capability "+string(capability)+" is not self-grantable")
		}
	}

	record := GrantRecord{
		ID:            id.GrantID(uuid.New()),
		Kind:          RecordGrant,
		PrincipalID:   target.ID,
		PrincipalType: target.Type,
		ResourceScope: resourceScope,
		Capability:    capability,
		Actor:         actor.ID,
		RecordedAt:    s.now().UTC(),
	}
	if err := s.ledger.Append(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append grant record")
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.ActionCapabilityGranted, audit.Event{
			Subject: target.ID.String(),
			Outcome: "granted",
			Reason:  string(capability) + " on " + resourceScope,
		})
	}
	return &record, nil
}

// Revoke appends a revocation row superseding any active grant for the
// triple. Revoking an absent grant is not an error.
func (s *Service) Revoke(ctx context.Context, actor Principal, target Principal, resourceScope string, capability Capability) error {
	if err := validateGrantInput(actor, target, resourceScope); err != nil {
		return err
	}

	active, err := s.Check(ctx, target.ID, resourceScope, capability)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}

	record := GrantRecord{
		ID:            id.GrantID(uuid.New()),
		Kind:          RecordRevoke,
		PrincipalID:   target.ID,
		PrincipalType: target.Type,
		ResourceScope: resourceScope,
		Capability:    capability,
		Actor:         actor.ID,
		RecordedAt:    s.now().UTC(),
	}
	if err := s.ledger.Append(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append revocation record")
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.ActionCapabilityRevoked, audit.Event{
			Subject: target.ID.String(),
			Outcome: "revoked",
			Reason:  string(capability) + " on " + resourceScope,
		})
	}
	return nil
}

// Check reports whether the principal currently holds the capability against
// the resource scope: the latest ledger row for the triple must be a grant.
func (s *Service) Check(ctx context.Context, principalID id.PrincipalID, resourceScope string, capability Capability) (bool, error) {
	if principalID.IsNil() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "principal ID is required")
	}

	records, err := s.ledger.ListByPrincipal(ctx, principalID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access ledger")
	}

	// Records are returned in append order; the last matching row wins.
	active := false
	for _, r := range records {
		if r.ResourceScope != resourceScope || r.Capability != capability {
			continue
		}
		active = r.Kind == RecordGrant
	}
	return active, nil
}

// History returns the principal's full ledger, grants and revocations, in
// append order.
func (s *Service) History(ctx context.Context, principalID id.PrincipalID) ([]GrantRecord, error) {
	if principalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal ID is required")
	}
	return s.ledger.ListByPrincipal(ctx, principalID)
}

func (s *Service) deny(ctx context.Context, actor Principal, resourceScope string, capability Capability, reason string) error {
	s.logger.WarnContext(ctx, "grant denied",
		"actor", actor.ID.String(),
		"actor_type", string(actor.Type),
		"capability", string(capability),
		"scope", resourceScope,
		"reason", reason,
	)
	if s.auditor != nil {
		s.auditor.Record(ctx, audit.ActionGrantDenied, audit.Event{
			Subject: actor.ID.String(),
			Outcome: "denied",
			Reason:  reason,
		})
	}
	return dErrors.New(dErrors.CodeUnauthorized, reason)
}

func validateGrantInput(actor, target Principal, resourceScope string) error {
	if actor.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "actor principal is required")
	}
	if target.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "target principal is required")
	}
	if strings.TrimSpace(resourceScope) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "resource scope is required")
	}
	return nil
}

// Package registry maps logical model names to physical deployments.
//
// The routing table is copy-on-write: writers build a new snapshot under a
// mutex and swap it in; readers grab the current snapshot once per request
// and resolve every name against that one version. Concurrent registration
// is therefore invisible within a request, and a rule change is atomic from
// the router's perspective.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "hubgate/pkg/domain-errors"
)

// entry is one logical model's registry state. A known model with a nil rule
// is decommissioned: the name stays reserved but resolves to nothing live.
type entry struct {
	model LogicalModel
	rule  *RoutingRule
}

// Snapshot is an immutable view of the routing table. Safe for concurrent
// readers; never mutated after publication.
type Snapshot struct {
	entries map[string]entry
}

// Resolve returns the active routing rule for a logical model name.
// Unknown names fail with UnknownModel; known-but-decommissioned names fail
// with BackendUnavailable (the allow-list is necessary but not sufficient,
// the registry is authoritative).
func (s *Snapshot) Resolve(name string) (*RoutingRule, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownModel, "model "+name+" is not registered")
	}
	if e.rule == nil {
		return nil, dErrors.New(dErrors.CodeBackendUnavailable, "model "+name+" has no live backend")
	}
	return e.rule, nil
}

// Known reports whether a logical model name is registered at all,
// decommissioned or not.
func (s *Snapshot) Known(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Service owns the routing table.
type Service struct {
	mu      sync.RWMutex
	current *Snapshot

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

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates an empty registry.
func New(opts ...Option) *Service {
	s := &Service{
		current: &Snapshot{entries: map[string]entry{}},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register installs the routing rule binding model to deployment. It is
// idempotent: resubmitting an identical (model, deployment, policy) tuple
// returns the existing rule unchanged. A different deployment or policy for
// the same name replaces the rule atomically. Region-restricted models
// reject deployments outside their allowed set with ConstraintViolation.
func (s *Service) Register(ctx context.Context, model LogicalModel, dep PhysicalDeployment, policy RoutePolicy) (*RoutingRule, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if err := dep.Validate(); err != nil {
		return nil, err
	}
	if !model.RegionAllowed(dep.Region) {
		return nil, dErrors.New(dErrors.CodeConstraintViolation,
			"model "+model.Name+" cannot be deployed in region "+dep.Region)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.current.entries[model.Name]; ok && existing.rule != nil {
		if existing.rule.equivalent(model, dep, policy) {
			return existing.rule, nil
		}
	}

	rule := &RoutingRule{
		Model:        model,
		Deployment:   dep,
		Policy:       policy,
		RegisteredAt: s.now().UTC(),
	}
	s.publishLocked(model.Name, entry{model: model, rule: rule})

	s.logger.InfoContext(ctx, "routing rule registered",
		"model", model.Name,
		"backend", dep.BackendID.String(),
		"region", dep.Region,
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
		s.metrics.SetActiveRules(s.countActiveLocked())
	}
	return rule, nil
}

// Decommission removes the live backend for a model while keeping the name
// registered, so subsequent resolves fail with BackendUnavailable rather
// than UnknownModel. Decommissioning an already-dead or unknown model is not
// an error.
func (s *Service) Decommission(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.current.entries[name]
	if !ok || e.rule == nil {
		return nil
	}
	s.publishLocked(name, entry{model: e.model, rule: nil})

	s.logger.InfoContext(ctx, "model decommissioned", "model", name)
	if s.metrics != nil {
		s.metrics.SetActiveRules(s.countActiveLocked())
	}
	return nil
}

// Resolve resolves one name against the current snapshot. Request-scoped
// code that resolves more than once should call Snapshot first and resolve
// against that.
func (s *Service) Resolve(_ context.Context, name string) (*RoutingRule, error) {
	return s.Snapshot().Resolve(name)
}

// Snapshot returns the current immutable routing table version.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// publishLocked installs a changed entry in a fresh snapshot. Callers hold mu.
func (s *Service) publishLocked(name string, e entry) {
	next := make(map[string]entry, len(s.current.entries)+1)
	for k, v := range s.current.entries {
		next[k] = v
	}
	next[name] = e
	s.current = &Snapshot{entries: next}
}

func (s *Service) countActiveLocked() int {
	n := 0
	for _, e := range s.current.entries {
		if e.rule != nil {
			n++
		}
	}
	return n
}

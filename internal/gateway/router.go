// Package gateway implements the data-plane router: the single entry point
// tenant workloads call to reach AI backends. Every request passes through
// the same ordered sequence of checks; the first failing check wins and
// nothing after it runs.
//
// The order is deliberate. Authentication comes before authorization so an
// attacker learns nothing about the model catalog from an invalid
// credential, and rate limiting is the last gate before dispatch so only
// requests that would actually reach a backend count against the quota.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"hubgate/internal/connection"
	"hubgate/internal/gateway/tracer"
	"hubgate/internal/registry"
	dErrors "hubgate/pkg/domain-errors"
)

// Authenticator resolves a tenant credential to its live connection.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*connection.Connection, error)
}

// Catalog is the router's read view of the model registry.
type Catalog interface {
	Snapshot() *registry.Snapshot
}

// apiVersionParam is the query parameter backends use to pin their wire
// format. Callers that set it explicitly always win.
const apiVersionParam = "api-version"

// Config carries the gateway-wide routing defaults. Per-model policy on a
// routing rule overrides these per request.
type Config struct {
	DefaultAPIVersion string
	RateLimitCalls    int
	RateLimitWindow   time.Duration
	DispatchTimeout   time.Duration
}

// InboundRequest is a routed call after HTTP decoding: the caller's
// credential, the logical model addressed, and the payload to forward.
type InboundRequest struct {
	Credential string
	Model      string
	Method     string
	SubPath    string
	Query      url.Values
	Header     http.Header
	Body       []byte
}

// Router executes the routing sequence for inbound data-plane requests.
type Router struct {
	connections Authenticator
	catalog     Catalog
	steps       []Step
	dispatcher  *Dispatcher

	logger  *slog.Logger
	metrics *Metrics
	tracer  tracer.Tracer
}

// Option configures the Router.
type Option func(*Router)

// WithLogger sets the logger for the router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics sets the metrics collector for the router.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithTracer sets the tracer for routed requests.
func WithTracer(t tracer.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithDispatcher replaces the backend dispatcher. Tests use this to point
// the router at httptest servers with short timeouts.
func WithDispatcher(d *Dispatcher) Option {
	return func(r *Router) { r.dispatcher = d }
}

// New creates the data-plane router. All four collaborators are required;
// the router panics without them - fail fast at startup.
func New(auth Authenticator, catalog Catalog, exchanger CredentialExchanger, limiter Limiter, cfg Config, opts ...Option) *Router {
	if auth == nil {
		panic("gateway.New: authenticator is required")
	}
	if catalog == nil {
		panic("gateway.New: catalog is required")
	}
	if exchanger == nil {
		panic("gateway.New: credential exchanger is required")
	}
	if limiter == nil {
		panic("gateway.New: limiter is required")
	}
	r := &Router{
		connections: auth,
		catalog:     catalog,
		steps: []Step{
			InjectDefaultParam{Param: apiVersionParam, Default: cfg.DefaultAPIVersion},
			SubstituteCredential{Exchanger: exchanger},
			RateLimit{Limiter: limiter, Calls: cfg.RateLimitCalls, Window: cfg.RateLimitWindow},
		},
		dispatcher: NewDispatcher(cfg.DispatchTimeout),
		logger:     slog.Default(),
		tracer:     tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route runs the full sequence for one request and returns the backend's
// response. The caller owns the response body. Any error carries a domain
// code that maps to the HTTP status the caller should see.
func (r *Router) Route(ctx context.Context, req *InboundRequest) (*http.Response, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanRoute,
		tracer.String(tracer.AttrModel, req.Model),
	)

	resp, err := r.route(ctx, span, req)
	span.End(err)
	return resp, err
}

func (r *Router) route(ctx context.Context, span tracer.Span, req *InboundRequest) (*http.Response, error) {
	conn, err := r.connections.Authenticate(ctx, req.Credential)
	if err != nil {
		return nil, r.reject(req.Model, err)
	}
	span.SetAttributes(tracer.String(tracer.AttrConnectionID, conn.ID.String()))

	if !conn.Allows(req.Model) {
		return nil, r.reject(req.Model, dErrors.New(dErrors.CodeModelNotAllowed,
			"model "+req.Model+" is not in this connection's allow-list"))
	}

	rule, err := r.catalog.Snapshot().Resolve(req.Model)
	if err != nil {
		// The allow-list vouched for the name, so a missing registry
		// entry means the backend is gone, not that the model never
		// existed.
		if dErrors.HasCode(err, dErrors.CodeUnknownModel) {
			err = dErrors.New(dErrors.CodeBackendUnavailable,
				"model "+req.Model+" has no live backend")
		}
		return nil, r.reject(req.Model, err)
	}
	span.SetAttributes(
		tracer.String(tracer.AttrBackendID, rule.Deployment.BackendID.String()),
		tracer.String(tracer.AttrRegion, rule.Deployment.Region),
	)

	state := &RequestState{
		Conn:    conn,
		Rule:    rule,
		Method:  req.Method,
		SubPath: req.SubPath,
		Query:   cloneValues(req.Query),
		Header:  req.Header.Clone(),
		Body:    req.Body,
	}
	if err := r.applySteps(ctx, span, state); err != nil {
		return nil, r.reject(req.Model, err)
	}

	resp, err := r.dispatch(ctx, state)
	if err != nil {
		r.logger.ErrorContext(ctx, "backend dispatch failed",
			slog.String("model", req.Model),
			slog.String("backend_id", rule.Deployment.BackendID.String()),
			slog.String("error", err.Error()),
		)
		r.observe(req.Model, string(dErrors.CodeOf(err)))
		return nil, err
	}

	span.SetAttributes(tracer.Int64(tracer.AttrUpstreamCode, int64(resp.StatusCode)))
	r.observe(req.Model, "ok")
	return resp, nil
}

func (r *Router) applySteps(ctx context.Context, span tracer.Span, state *RequestState) error {
	for _, step := range r.steps {
		if err := step.Apply(ctx, state); err != nil {
			span.AddEvent(tracer.EventStepRejected,
				tracer.String(tracer.AttrStep, step.Name()),
			)
			return err
		}
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, state *RequestState) (*http.Response, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanDispatch,
		tracer.String(tracer.AttrBackendID, state.Rule.Deployment.BackendID.String()),
	)
	start := time.Now()
	resp, err := r.dispatcher.Do(ctx, state)
	if r.metrics != nil {
		r.metrics.ObserveDispatch(state.Rule.Deployment.BackendID.String(), time.Since(start))
	}
	span.End(err)
	return resp, err
}

func (r *Router) reject(model string, err error) error {
	code := string(dErrors.CodeOf(err))
	if r.metrics != nil {
		r.metrics.ObserveRejection(code)
	}
	r.observe(model, code)
	return err
}

func (r *Router) observe(model, outcome string) {
	if r.metrics != nil {
		r.metrics.ObserveRequest(model, outcome)
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

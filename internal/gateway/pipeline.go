package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"hubgate/internal/connection"
	"hubgate/internal/ratelimit"
	"hubgate/internal/registry"
	dErrors "hubgate/pkg/domain-errors"
)

// RequestState is the mutable per-request state the policy steps operate on.
// Each request gets its own instance; nothing here is shared across requests.
type RequestState struct {
	Conn *connection.Connection
	Rule *registry.RoutingRule

	Method  string
	SubPath string
	Query   url.Values
	Header  http.Header
	Body    []byte

	// BackendCredential is set by the credential substitution step and
	// attached at dispatch. It never comes from the caller.
	BackendCredential string

	// RetryAfter carries the rate limiter's hint when a step rejects.
	RetryAfter int
}

// Step is one named policy operation applied to a request before dispatch.
// Keeping the sequence as explicit values makes the policy orderable and
// testable without a templating language.
type Step interface {
	Name() string
	Apply(ctx context.Context, state *RequestState) error
}

// InjectDefaultParam fills in a query parameter the backend requires when
// the caller omitted it. A value the caller supplied explicitly is never
// changed.
type InjectDefaultParam struct {
	Param   string
	Default string
}

func (s InjectDefaultParam) Name() string { return "inject_default_param" }

func (s InjectDefaultParam) Apply(_ context.Context, state *RequestState) error {
	value := s.Default
	if state.Rule.Policy.DefaultAPIVersion != "" {
		value = state.Rule.Policy.DefaultAPIVersion
	}
	if value == "" || state.Query.Has(s.Param) {
		return nil
	}
	state.Query.Set(s.Param, value)
	return nil
}

// CredentialExchanger obtains a backend-scoped credential for the gateway,
// after the access policy enforcer confirms the gateway may invoke that
// backend.
type CredentialExchanger interface {
	Exchange(ctx context.Context, scope, region string) (string, error)
}

// SubstituteCredential discards any backend credential the caller attached
// and replaces it with a hub-held one. This is the trust boundary: tenants
// never hold direct backend credentials.
type SubstituteCredential struct {
	Exchanger CredentialExchanger
}

func (s SubstituteCredential) Name() string { return "substitute_credential" }

func (s SubstituteCredential) Apply(ctx context.Context, state *RequestState) error {
	// Caller-supplied backend auth is dropped unconditionally.
	state.Header.Del("Authorization")
	state.Header.Del("Api-Key")

	scope := state.Rule.Policy.CredentialScope
	if scope == "" {
		scope = state.Rule.Deployment.BackendID.String()
	}
	credential, err := s.Exchanger.Exchange(ctx, scope, state.Rule.Deployment.Region)
	if err != nil {
		return err
	}
	state.BackendCredential = credential
	return nil
}

// RateLimitedError carries the retry hint alongside the quota rejection so
// the HTTP layer can set the Retry-After header. It unwraps to a domain
// error with the rate-limited code.
type RateLimitedError struct {
	RetryAfter int
	err        error
}

func (e *RateLimitedError) Error() string { return e.err.Error() }
func (e *RateLimitedError) Unwrap() error { return e.err }

// Limiter is the quota counter port.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error)
}

// RateLimit enforces the fixed-window quota per connection. Per-model policy
// overrides win over the gateway-wide default.
type RateLimit struct {
	Limiter Limiter
	Calls   int
	Window  time.Duration
}

func (s RateLimit) Name() string { return "rate_limit" }

func (s RateLimit) Apply(ctx context.Context, state *RequestState) error {
	calls, window := s.Calls, s.Window
	if state.Rule.Policy.RateLimitCalls > 0 {
		calls = state.Rule.Policy.RateLimitCalls
	}
	if state.Rule.Policy.RateLimitWindow > 0 {
		window = state.Rule.Policy.RateLimitWindow
	}

	result, err := s.Limiter.Allow(ctx, state.Conn.ID.String(), calls, window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check failed")
	}
	if !result.Allowed {
		state.RetryAfter = result.RetryAfter
		return &RateLimitedError{
			RetryAfter: result.RetryAfter,
			err:        dErrors.New(dErrors.CodeRateLimited, "connection quota exceeded"),
		}
	}
	return nil
}

// Package provision is the port to the external provisioning engine that
// stands up physical deployments. The hub submits a declarative spec,
// polls until the engine reports the deployment ready, and gets back the
// endpoint URL and the service identity created for it. The real engine
// lives outside this repository; the fake here serves tests and local runs.
package provision

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// Spec is the declarative request for one physical deployment.
type Spec struct {
	BackendID     id.BackendID
	Region        string
	CapacityUnits int
	ModelName     string
	ModelVersion  string
}

// Result is what a finished provisioning run hands back.
type Result struct {
	BackendID   id.BackendID
	EndpointURL string
	// PrincipalID identifies the service identity the engine created for
	// the deployment; capability grants target it.
	PrincipalID id.PrincipalID
}

// TicketID tracks an in-flight provisioning run.
type TicketID string

// Status is one poll answer. EndpointURL and PrincipalID are only set once
// Ready is true.
type Status struct {
	Ready       bool
	EndpointURL string
	PrincipalID id.PrincipalID
}

// Engine is the provisioning engine port.
type Engine interface {
	Submit(ctx context.Context, spec Spec) (TicketID, error)
	Check(ctx context.Context, ticket TicketID) (*Status, error)
}

// Waiter submits specs and polls the engine until every deployment is
// ready or the deadline passes.
type Waiter struct {
	engine       Engine
	pollInterval time.Duration
	timeout      time.Duration
}

// WaiterOption configures the Waiter.
type WaiterOption func(*Waiter)

// WithPollInterval sets the delay between polls.
func WithPollInterval(d time.Duration) WaiterOption {
	return func(w *Waiter) { w.pollInterval = d }
}

// WithTimeout bounds the whole wait, all deployments included.
func WithTimeout(d time.Duration) WaiterOption {
	return func(w *Waiter) { w.timeout = d }
}

func NewWaiter(engine Engine, opts ...WaiterOption) *Waiter {
	if engine == nil {
		panic("provision.NewWaiter: engine is required")
	}
	w := &Waiter{
		engine:       engine,
		pollInterval: 2 * time.Second,
		timeout:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WaitAll provisions every spec in parallel and returns results in the
// same order as the input. The first failure cancels the remaining waits.
func (w *Waiter) WaitAll(ctx context.Context, specs []Spec) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Each goroutine writes only its own slot.
	results := make([]Result, len(specs))
	for i, spec := range specs {
		g.Go(func() error {
			result, err := w.waitOne(ctx, spec)
			if err != nil {
				return err
			}
			results[i] = *result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Waiter) waitOne(ctx context.Context, spec Spec) (*Result, error) {
	ticket, err := w.engine.Submit(ctx, spec)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackendError,
			"submitting deployment "+spec.BackendID.String())
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		status, err := w.engine.Check(ctx, ticket)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBackendError,
				"polling deployment "+spec.BackendID.String())
		}
		if status.Ready {
			return &Result{
				BackendID:   spec.BackendID,
				EndpointURL: status.EndpointURL,
				PrincipalID: status.PrincipalID,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, dErrors.New(dErrors.CodeTimeout,
				"deployment "+spec.BackendID.String()+" not ready before deadline")
		case <-ticker.C:
		}
	}
}

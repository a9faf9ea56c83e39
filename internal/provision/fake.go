package provision

import (
	"context"
	"sync"

	"github.com/google/uuid"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// FakeEngine simulates the provisioning engine in memory. A deployment
// becomes ready after a configurable number of polls, which is enough to
// exercise the waiter's retry loop without real infrastructure.
type FakeEngine struct {
	mu      sync.Mutex
	tickets map[TicketID]*fakeRun

	// ReadyAfterPolls is how many Check calls a run answers "not ready"
	// before flipping. Zero means ready on the first poll.
	ReadyAfterPolls int

	// EndpointFor overrides the synthesized endpoint URL per backend.
	EndpointFor map[id.BackendID]string
}

type fakeRun struct {
	spec      Spec
	polls     int
	principal id.PrincipalID
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{tickets: make(map[TicketID]*fakeRun)}
}

func (e *FakeEngine) Submit(_ context.Context, spec Spec) (TicketID, error) {
	if spec.BackendID.IsNil() {
		return "", dErrors.New(dErrors.CodeValidation, "backend ID is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ticket := TicketID(uuid.NewString())
	e.tickets[ticket] = &fakeRun{
		spec:      spec,
		principal: id.PrincipalID(uuid.New()),
	}
	return ticket, nil
}

func (e *FakeEngine) Check(_ context.Context, ticket TicketID) (*Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.tickets[ticket]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown provisioning ticket")
	}
	if run.polls < e.ReadyAfterPolls {
		run.polls++
		return &Status{}, nil
	}
	return &Status{
		Ready:       true,
		EndpointURL: e.endpointFor(run.spec),
		PrincipalID: run.principal,
	}, nil
}

func (e *FakeEngine) endpointFor(spec Spec) string {
	if url, ok := e.EndpointFor[spec.BackendID]; ok {
		return url
	}
	return "https://" + spec.BackendID.String() + "." + spec.Region + ".models.example.com"
}

var _ Engine = (*FakeEngine)(nil)

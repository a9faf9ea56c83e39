package gateway

import (
	"context"

	"hubgate/internal/access"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// CapabilityChecker answers whether a principal currently holds a capability
// on a resource scope.
type CapabilityChecker interface {
	Check(ctx context.Context, principalID id.PrincipalID, resourceScope string, capability access.Capability) (bool, error)
}

// TokenMinter issues short-lived backend credentials.
type TokenMinter interface {
	Mint(scope, region string) (string, error)
}

// HubExchanger turns the gateway's own identity into a backend credential:
// it checks the gateway holds invoke-model on the backend's scope, then
// mints a token bound to that scope and region.
type HubExchanger struct {
	checker   CapabilityChecker
	minter    TokenMinter
	principal id.PrincipalID
}

func NewHubExchanger(checker CapabilityChecker, minter TokenMinter, principal id.PrincipalID) *HubExchanger {
	if checker == nil {
		panic("gateway: capability checker is required")
	}
	if minter == nil {
		panic("gateway: token minter is required")
	}
	return &HubExchanger{checker: checker, minter: minter, principal: principal}
}

func (e *HubExchanger) Exchange(ctx context.Context, scope, region string) (string, error) {
	ok, err := e.checker.Check(ctx, e.principal, scope, access.CapInvokeModel)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "capability check failed")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "gateway is not permitted to invoke this backend")
	}

	credential, err := e.minter.Mint(scope, region)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "minting backend credential failed")
	}
	return credential, nil
}

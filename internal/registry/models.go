package registry

import (
	"slices"
	"strings"
	"time"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// LogicalModel is the caller-facing name for an inference capability,
// independent of where it physically runs. Within one hub the name is unique.
type LogicalModel struct {
	Name    string
	Format  string // provider family, e.g. "OpenAI"
	Version string

	// AllowedRegions pins deployments for region-restricted models. Empty
	// means any region.
	AllowedRegions []string
}

// Validate rejects incomplete model declarations.
func (m LogicalModel) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "logical model name is required")
	}
	if strings.TrimSpace(m.Format) == "" {
		return dErrors.New(dErrors.CodeValidation, "logical model format is required")
	}
	return nil
}

// RegionAllowed reports whether a deployment region satisfies the model's
// placement restriction.
func (m LogicalModel) RegionAllowed(region string) bool {
	if len(m.AllowedRegions) == 0 {
		return true
	}
	return slices.Contains(m.AllowedRegions, region)
}

// PhysicalDeployment is a concrete capacity-provisioned backend.
type PhysicalDeployment struct {
	BackendID     id.BackendID
	Region        string
	CapacityUnits int
	EndpointURL   string
}

// Validate rejects incomplete deployment declarations.
func (d PhysicalDeployment) Validate() error {
	if d.BackendID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "backend ID is required")
	}
	if strings.TrimSpace(d.Region) == "" {
		return dErrors.New(dErrors.CodeValidation, "deployment region is required")
	}
	if strings.TrimSpace(d.EndpointURL) == "" {
		return dErrors.New(dErrors.CodeValidation, "deployment endpoint URL is required")
	}
	return nil
}

// RoutePolicy is the policy fragment attached to a routing rule. The gateway
// compiles it into its explicit step sequence; keeping it declarative here
// means rules stay comparable for idempotent registration.
type RoutePolicy struct {
	// DefaultAPIVersion is injected when the caller omits the backend's
	// versioning parameter. Empty falls back to the gateway-wide default.
	DefaultAPIVersion string

	// CredentialScope names the audience of the backend-scoped credential
	// the gateway substitutes. Empty falls back to the backend ID.
	CredentialScope string

	// RateLimitCalls/RateLimitWindow override the gateway-wide quota for
	// this model when non-zero.
	RateLimitCalls  int
	RateLimitWindow time.Duration
}

// RoutingRule binds a logical model to exactly one physical deployment plus
// its policy fragment. Rules are immutable; changing a route installs a new
// rule in a fresh registry snapshot.
type RoutingRule struct {
	Model        LogicalModel
	Deployment   PhysicalDeployment
	Policy       RoutePolicy
	RegisteredAt time.Time
}

// equivalent reports whether re-registering (model, deployment, policy) would
// produce an identical rule, ignoring the registration timestamp.
func (r *RoutingRule) equivalent(model LogicalModel, dep PhysicalDeployment, policy RoutePolicy) bool {
	return r.Model.Name == model.Name &&
		r.Model.Format == model.Format &&
		r.Model.Version == model.Version &&
		slices.Equal(r.Model.AllowedRegions, model.AllowedRegions) &&
		r.Deployment == dep &&
		r.Policy == policy
}

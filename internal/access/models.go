package access

import (
	"strings"
	"time"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// PrincipalType distinguishes humans from automated identities. The
// distinction matters because service identities are constrained in what
// they may grant themselves.
type PrincipalType string

const (
	PrincipalUser            PrincipalType = "user"
	PrincipalServiceIdentity PrincipalType = "service_identity"
)

// Principal is an identity that capabilities are granted to.
type Principal struct {
	ID   id.PrincipalID
	Type PrincipalType
}

// Capability is a coarse named permission. Cloud-provider role strings never
// appear here; translating to them happens at the provisioning boundary.
type Capability string

const (
	CapInvokeModel        Capability = "invoke-model"
	CapReadIndexData      Capability = "read-index-data"
	CapManageDeployments  Capability = "manage-deployments"
	CapInvokeOwnResources Capability = "invoke-own-resources"
)

// selfGrantable lists the capabilities a service identity may grant itself.
// Everything else requires a human (or hub automation acting as a user
// principal), which is what stops a spoke's own agent from widening its
// access.
var selfGrantable = map[Capability]bool{
	CapInvokeOwnResources: true,
}

// SelfGrantable reports whether a service identity may grant this capability
// to itself.
func (c Capability) SelfGrantable() bool {
	return selfGrantable[c]
}

// ParseCapability validates a capability name from an API boundary.
func ParseCapability(s string) (Capability, error) {
	switch c := Capability(strings.TrimSpace(s)); c {
	case CapInvokeModel, CapReadIndexData, CapManageDeployments, CapInvokeOwnResources:
		return c, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown capability: "+s)
	}
}

// RecordKind marks a ledger row as a grant or its revocation.
type RecordKind string

const (
	RecordGrant  RecordKind = "grant"
	RecordRevoke RecordKind = "revoke"
)

// GrantRecord is one row of the access ledger. Rows are append-only: a
// revocation is a new row, never an edit, so the history of who held what
// access when stays reconstructable.
type GrantRecord struct {
	ID            id.GrantID
	Kind          RecordKind
	PrincipalID   id.PrincipalID
	PrincipalType PrincipalType
	ResourceScope string
	Capability    Capability
	Actor         id.PrincipalID
	RecordedAt    time.Time
}

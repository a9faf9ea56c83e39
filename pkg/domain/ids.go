// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "hubgate/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing ConnectionID where GrantID is expected.
type (
	ConnectionID uuid.UUID
	GrantID      uuid.UUID
	PrincipalID  uuid.UUID
)

// TenantID is the collision-resistant short name derived by the naming
// allocator (e.g. "k7x2qa"). It doubles as the tenant's identifier everywhere.
type TenantID string

// BackendID names a physical deployment (e.g. "gpt-4-1-mini-eastus2").
type BackendID string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseConnectionID(s string) (ConnectionID, error) {
	id, err := parseUUID(s, "connection ID")
	return ConnectionID(id), err
}

func ParseGrantID(s string) (GrantID, error) {
	id, err := parseUUID(s, "grant ID")
	return GrantID(id), err
}

func ParsePrincipalID(s string) (PrincipalID, error) {
	id, err := parseUUID(s, "principal ID")
	return PrincipalID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	return TenantID(s), nil
}

// String methods - for logging and debugging.

func (id ConnectionID) String() string { return uuid.UUID(id).String() }
func (id GrantID) String() string      { return uuid.UUID(id).String() }
func (id PrincipalID) String() string  { return uuid.UUID(id).String() }
func (id TenantID) String() string     { return string(id) }
func (id BackendID) String() string    { return string(id) }

// IsNil checks - used for service-layer validation.

func (id ConnectionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PrincipalID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool     { return id == "" }
func (id BackendID) IsNil() bool    { return id == "" }

// parseUUID is the shared validation logic. Nil UUIDs are allowed here; use
// IsNil() at the service layer so store lookups can return proper "not found"
// errors instead of input errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}

package connection

import (
	"strings"
	"time"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// Connection is the credential object binding a tenant to the gateway with an
// allow-list of logical models. The stored record never holds the plaintext
// secret; rotation replaces SecretHash while the connection ID stays stable.
type Connection struct {
	ID            id.ConnectionID
	OwnerTenantID id.TenantID
	GatewayTarget string

	// SecretHash is the bcrypt hash of the current credential material.
	SecretHash string

	// ModelAllowList keeps insertion order for display; membership is what
	// matters semantically.
	ModelAllowList []string

	CreatedAt time.Time
	RotatedAt time.Time

	Revoked   bool
	RevokedAt time.Time
}

// Allows reports whether a logical model name is on the allow-list.
func (c *Connection) Allows(model string) bool {
	for _, m := range c.ModelAllowList {
		if m == model {
			return true
		}
	}
	return false
}

// IssuedConnection carries the plaintext credential exactly once, at issue or
// rotation time. It is never persisted.
type IssuedConnection struct {
	Connection Connection
	Credential string
}

// credentialSeparator splits the connection ID from the secret inside a
// presented credential, so authentication is a single keyed lookup plus one
// hash comparison.
const credentialSeparator = "."

// IssueRequest is the admin API payload for issuing a connection.
type IssueRequest struct {
	TenantID string   `json:"tenant_id"`
	Models   []string `json:"models"`
	Target   string   `json:"target"`
}

func (r *IssueRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Target = strings.TrimSpace(r.Target)
	for i := range r.Models {
		r.Models[i] = strings.TrimSpace(r.Models[i])
	}
}

func (r *IssueRequest) Validate() error {
	if r.TenantID == "" {
		return dErrors.New(dErrors.CodeValidation, "tenant_id is required")
	}
	if len(r.Models) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one model is required")
	}
	for _, m := range r.Models {
		if m == "" {
			return dErrors.New(dErrors.CodeValidation, "model names cannot be empty")
		}
	}
	return nil
}

// ConnectionResponse is the admin API view of a connection. The credential
// field is only populated on issue and rotate responses.
type ConnectionResponse struct {
	ID         string   `json:"id"`
	TenantID   string   `json:"tenant_id"`
	Target     string   `json:"target,omitempty"`
	Models     []string `json:"models"`
	Revoked    bool     `json:"revoked"`
	CreatedAt  string   `json:"created_at"`
	Credential string   `json:"credential,omitempty"`
}

func toResponse(c *Connection, credential string) ConnectionResponse {
	return ConnectionResponse{
		ID:         c.ID.String(),
		TenantID:   c.OwnerTenantID.String(),
		Target:     c.GatewayTarget,
		Models:     c.ModelAllowList,
		Revoked:    c.Revoked,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
		Credential: credential,
	}
}

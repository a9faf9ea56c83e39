// Package naming derives collision-resistant short names for tenants.
//
// A name is the first 6 characters of the base32-encoded SHA-256 of the
// canonical seed string. Six base32 characters carry 30 bits, so by the
// birthday bound the probability of any collision among n tenants is about
// n*(n-1)/2^31: roughly 5e-7 at 32 tenants and still under 0.05% at 1000.
// That is negligible for a hub's tenant population, so there is no retry
// logic; the bound is documented here instead of ignored.
package naming

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"

	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
)

// nameLength is the number of base32 characters kept from the digest.
const nameLength = 6

// base32 without padding, lowercased after encoding so names are valid in
// DNS labels and cloud resource names.
var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TenantContext is the stable seed for name allocation. The same context
// always yields the same name, so re-running onboarding converges instead of
// minting duplicates. Pass it explicitly; never read ambient state.
type TenantContext struct {
	Subscription  string
	ResourceGroup string
	DisplayName   string
}

// Validate rejects seeds that would collapse distinct tenants into one name.
func (c TenantContext) Validate() error {
	if strings.TrimSpace(c.Subscription) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subscription is required in tenant context")
	}
	if strings.TrimSpace(c.ResourceGroup) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "resource group is required in tenant context")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "display name is required in tenant context")
	}
	return nil
}

// canonical builds the hashed seed string. The separator cannot appear in
// cloud subscription or resource group identifiers, so distinct contexts
// never produce the same canonical form.
func (c TenantContext) canonical() string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(c.Subscription),
		strings.TrimSpace(c.ResourceGroup),
		strings.TrimSpace(c.DisplayName),
	}, "\x1f"))
}

// Allocate derives the tenant's unique short name from its context.
// Deterministic and side-effect free.
func Allocate(seed TenantContext) (id.TenantID, error) {
	if err := seed.Validate(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(seed.canonical()))
	name := strings.ToLower(encoding.EncodeToString(sum[:]))[:nameLength]
	return id.TenantID(name), nil
}

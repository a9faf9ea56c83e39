// Package token mints the short-lived backend-scoped credentials the gateway
// attaches in place of whatever the caller sent. Tenants never see these;
// each token is audience-bound to one backend scope.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "hubgate/pkg/domain-errors"
)

const issuer = "hubgate"

// BackendClaims are the claims carried by a backend credential.
type BackendClaims struct {
	Region string `json:"region,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies backend credentials.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a token service. The signing key is hub-held; it never leaves
// the gateway process.
func New(signingKey string, ttl time.Duration, opts ...Option) *Service {
	if signingKey == "" {
		panic("token.New: signing key is required")
	}
	s := &Service{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint issues a credential for one backend scope.
func (s *Service) Mint(scope, region string) (string, error) {
	now := s.now().UTC()
	claims := BackendClaims{
		Region: region,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "gateway",
			Audience:  jwt.ClaimStrings{scope},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign backend credential")
	}
	return signed, nil
}

// Verify parses a credential and checks signature, expiry, and audience.
func (s *Service) Verify(raw, scope string) (*BackendClaims, error) {
	claims := &BackendClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "unexpected signing method")
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(scope),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthenticated, "invalid backend credential")
	}
	return claims, nil
}

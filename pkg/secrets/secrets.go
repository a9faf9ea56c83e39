// Package secrets handles connection credential material: random secret
// generation and bcrypt hashing. Plaintext secrets exist only in transit;
// only hashes are stored.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "hubgate/pkg/domain-errors"
)

// secretBytes keeps secrets well inside bcrypt's 72-byte input limit once
// base64-encoded.
const secretBytes = 32

// Generate returns a fresh URL-safe random secret.
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generating secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash bcrypt-hashes a secret for storage.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hashing secret")
	}
	return string(hashed), nil
}

// Verify compares a presented secret against a stored hash. A mismatch is
// an authentication failure, not an internal error.
func Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthenticated, "invalid secret")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "verifying secret")
	}
	return nil
}

// Package secrets generates and hashes the opaque secrets backing refresh,
// verification, and reset tokens. Secrets are handed to callers exactly once;
// only their SHA-256 digest is ever persisted.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const secretSize = 48

// New returns a fresh unguessable opaque secret encoded as base64url without
// padding. 48 random bytes matches the entropy of the issued tokens the rest
// of the platform already expects.
func New() (string, error) {
	var raw [secretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Hash returns the hex-encoded SHA-256 digest of a secret. Stores index
// tokens by this value and never see the plaintext.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Equal compares two hex digests in constant time.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Validate rejects strings that cannot be a secret produced by New. It is a
// cheap pre-filter before any store lookup.
func Validate(secret string) error {
	if secret == "" {
		return errors.New("empty secret")
	}
	raw, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		return errors.New("malformed secret")
	}
	if len(raw) != secretSize {
		return errors.New("invalid secret size")
	}
	return nil
}

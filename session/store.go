package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by [Store.GetByHash] when no token matches the hash.
var ErrNotFound = errors.New("session: token not found")

// Store persists refresh tokens. Implementations must make Revoke an atomic
// compare-and-set: exactly one caller wins when several race to revoke the
// same live token.
type Store interface {
	// Create inserts a new token record.
	Create(ctx context.Context, token *Token) error

	// GetByHash looks a token up by the hash of its plaintext secret.
	// Returns ErrNotFound when absent. Revoked and expired records are
	// still returned so the caller can distinguish reuse from expiry.
	GetByHash(ctx context.Context, hash string) (*Token, error)

	// Revoke marks the token revoked if and only if it is not already.
	// It reports whether this call performed the transition.
	Revoke(ctx context.Context, id string) (bool, error)

	// RevokeFamily revokes every token in the rotation family.
	RevokeFamily(ctx context.Context, familyID string) error

	// RevokeAllForUser revokes every token belonging to the user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// DeleteExpired removes tokens that expired before the cutoff and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

package session

import "time"

// Token is a persisted refresh token. The plaintext secret is never stored;
// SecretHash holds its SHA-256 digest, so a database leak does not yield
// usable tokens.
type Token struct {
	ID         string
	UserID     string
	FamilyID   string
	SecretHash string
	IsRevoked  bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the token's lifetime has elapsed at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

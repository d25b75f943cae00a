package identity

import (
	"context"
	"strings"
	"time"

	"github.com/opencourse/identity/session"
)

// Role is the platform role carried in access-token claims.
type Role string

const (
	// RoleStudent is the default role for new registrations.
	RoleStudent Role = "student"
	// RoleTeacher is a role that requires admin approval before the
	// is_verified claim turns true.
	RoleTeacher Role = "teacher"
	// RoleAdmin may list and verify pending teachers.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known platform roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// UserAccount is the persisted account record. IsVerified is the
// teacher-approval flag and is meaningless for other roles; EmailVerified
// flips only through verification-token redemption.
type UserAccount struct {
	ID            string
	Email         string
	PasswordHash  string
	Name          string
	Role          Role
	IsVerified    bool
	EmailVerified bool
	CreatedAt     time.Time
}

// OneTimeToken is a persisted single-use secret for email verification or
// password reset. Once UsedAt is set the token is permanently dead,
// regardless of expiry.
type OneTimeToken struct {
	ID         string
	UserID     string
	SecretHash string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	UsedAt     *time.Time
}

// Expired reports whether the token's lifetime has elapsed at the given instant.
func (t *OneTimeToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair is the credential pair returned by register, login, and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthResult is returned by [Service.Register], [Service.Authenticate], and
// [Service.Refresh].
type AuthResult struct {
	User   *UserAccount
	Tokens TokenPair
}

// RegisterRequest is the input for [Service.Register]. Role defaults to
// [Config.Account.DefaultRole] when empty.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// TeacherPage is one page of pending teacher accounts plus the total count
// across all pages.
type TeacherPage struct {
	Teachers []*UserAccount
	Total    int
}

// AccountStore persists user accounts. Implementations must enforce email
// uniqueness case-insensitively and surface duplicates as [ErrConflict];
// lookups for absent records return [ErrNotFound].
type AccountStore interface {
	Create(ctx context.Context, account *UserAccount) error
	GetByEmail(ctx context.Context, email string) (*UserAccount, error)
	GetByID(ctx context.Context, id string) (*UserAccount, error)
	ListUnverifiedTeachers(ctx context.Context, limit, offset int) ([]*UserAccount, int, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	SetEmailVerified(ctx context.Context, id string, verified bool) error
	UpdatePasswordHash(ctx context.Context, id, newHash string) error
}

// OneTimeTokenStore persists single-use tokens. MarkUsed must be an atomic
// conditional update (set used_at only where it is null) and report whether
// this call performed the transition, so concurrent redemptions of one
// secret yield exactly one success. InvalidateForUser marks every live
// token of the user used rather than deleting; superseded rows must stay
// visible to [PasswordResetTokenStore.CountRecentForUser].
type OneTimeTokenStore interface {
	Create(ctx context.Context, token *OneTimeToken) error
	GetByHash(ctx context.Context, hash string) (*OneTimeToken, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	InvalidateForUser(ctx context.Context, userID string, at time.Time) error
}

// PasswordResetTokenStore adds the row-counting rate-limit probe to the
// one-time token contract.
type PasswordResetTokenStore interface {
	OneTimeTokenStore
	CountRecentForUser(ctx context.Context, userID string, since time.Time) (int, error)
}

// RefreshToken is a persisted rotating session credential.
type RefreshToken = session.Token

// RefreshTokenStore persists refresh tokens with the atomic conditional
// revoke the rotation protocol depends on.
type RefreshTokenStore = session.Store

// normalizeEmail lowercases and trims an email for case-insensitive matching.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opencourse/identity/internal/secrets"
)

var (
	// ErrInvalidToken is returned when the presented secret does not map to
	// any known token.
	ErrInvalidToken = errors.New("session: invalid refresh token")
	// ErrTokenExpired is returned when the token exists but its lifetime
	// has elapsed.
	ErrTokenExpired = errors.New("session: refresh token expired")
	// ErrReuseDetected is returned when a revoked token is presented.
	// By the time the caller sees this error the whole family has already
	// been revoked.
	ErrReuseDetected = errors.New("session: refresh token reuse detected")
)

// Config holds refresh-token lifetime settings.
type Config struct {
	TTL time.Duration
}

// Rotation is the result of a successful token rotation.
type Rotation struct {
	UserID       string
	FamilyID     string
	RefreshToken string
}

// Manager implements refresh-token rotation over a [Store].
//
// Every Issue starts a new rotation family. Rotate retires the presented
// token and mints its successor in the same family. Presenting a retired
// token is treated as theft evidence and kills the family.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager validates cfg and returns a Manager backed by store.
func NewManager(store Store, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session: TTL must be positive")
	}
	return &Manager{store: store, ttl: cfg.TTL, now: time.Now}, nil
}

// Issue mints a fresh token in a brand-new family and returns its plaintext
// secret. The secret is shown exactly once; only its hash is persisted.
func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	secret, err := secrets.New()
	if err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	now := m.now()
	token := &Token{
		ID:         uuid.NewString(),
		UserID:     userID,
		FamilyID:   uuid.NewString(),
		SecretHash: secrets.Hash(secret),
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, token); err != nil {
		return "", fmt.Errorf("persist refresh token: %w", err)
	}
	return secret, nil
}

// Rotate exchanges a live token for its successor.
//
// The presented token is revoked with an atomic compare-and-set before the
// successor is created, so concurrent rotations of the same secret produce
// exactly one winner. Losers, like anyone presenting an already-revoked
// token, trigger family revocation and get ErrReuseDetected.
func (m *Manager) Rotate(ctx context.Context, secret string) (*Rotation, error) {
	token, err := m.lookup(ctx, secret)
	if err != nil {
		return nil, err
	}

	if token.IsRevoked {
		if err := m.store.RevokeFamily(ctx, token.FamilyID); err != nil {
			return nil, fmt.Errorf("revoke token family: %w", err)
		}
		return nil, ErrReuseDetected
	}
	if token.Expired(m.now()) {
		return nil, ErrTokenExpired
	}

	revoked, err := m.store.Revoke(ctx, token.ID)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		// Lost the race: someone else already spent this token.
		if err := m.store.RevokeFamily(ctx, token.FamilyID); err != nil {
			return nil, fmt.Errorf("revoke token family: %w", err)
		}
		return nil, ErrReuseDetected
	}

	nextSecret, err := secrets.New()
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	now := m.now()
	next := &Token{
		ID:         uuid.NewString(),
		UserID:     token.UserID,
		FamilyID:   token.FamilyID,
		SecretHash: secrets.Hash(nextSecret),
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &Rotation{
		UserID:       token.UserID,
		FamilyID:     token.FamilyID,
		RefreshToken: nextSecret,
	}, nil
}

// Invalidate revokes the whole family of the presented token. Unknown and
// already-revoked tokens are not an error, so logout stays idempotent.
func (m *Manager) Invalidate(ctx context.Context, secret string) error {
	token, err := m.lookup(ctx, secret)
	if errors.Is(err, ErrInvalidToken) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.store.RevokeFamily(ctx, token.FamilyID)
}

// InvalidateAllForUser revokes every refresh token the user holds, across
// all families and devices.
func (m *Manager) InvalidateAllForUser(ctx context.Context, userID string) error {
	return m.store.RevokeAllForUser(ctx, userID)
}

// PurgeExpired deletes tokens whose lifetime elapsed before now.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

func (m *Manager) lookup(ctx context.Context, secret string) (*Token, error) {
	if err := secrets.Validate(secret); err != nil {
		return nil, ErrInvalidToken
	}
	token, err := m.store.GetByHash(ctx, secrets.Hash(secret))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return token, nil
}

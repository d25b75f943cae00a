package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opencourse/identity/session"
)

// RefreshTokenStore implements session.Store over the refresh_tokens table.
// Revoke relies on a conditional UPDATE so concurrent rotations of the same
// token produce exactly one winner.
type RefreshTokenStore struct {
	sqlDB *sql.DB
}

func (s *RefreshTokenStore) Create(ctx context.Context, token *session.Token) error {
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, family_id, is_revoked, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.SecretHash,
		token.FamilyID,
		boolToInt(token.IsRevoked),
		toMillis(token.ExpiresAt),
		toMillis(token.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) GetByHash(ctx context.Context, hash string) (*session.Token, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, family_id, is_revoked, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = ?`,
		hash,
	)

	var (
		token     session.Token
		isRevoked int
		expiresAt int64
		createdAt int64
	)
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.SecretHash,
		&token.FamilyID,
		&isRevoked,
		&expiresAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	token.IsRevoked = isRevoked != 0
	token.ExpiresAt = fromMillis(expiresAt)
	token.CreatedAt = fromMillis(createdAt)
	return &token, nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked = 1 WHERE id = ? AND is_revoked = 0`, id)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *RefreshTokenStore) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked = 1 WHERE family_id = ?`, familyID)
	if err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

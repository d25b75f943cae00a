package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	identity "github.com/opencourse/identity"
)

// TokenStore serves both email verification and password reset tokens; the
// two tables share a schema and differ only by name. MarkUsed is a
// conditional UPDATE so a token can be redeemed at most once.
type TokenStore struct {
	sqlDB *sql.DB
	table string
}

func (s *TokenStore) Create(ctx context.Context, token *identity.OneTimeToken) error {
	var usedAt sql.NullInt64
	if token.UsedAt != nil {
		usedAt = sql.NullInt64{Int64: toMillis(*token.UsedAt), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, token_hash, created_at, expires_at, used_at)
		VALUES (?, ?, ?, ?, ?, ?)`, s.table),
		token.ID,
		token.UserID,
		token.SecretHash,
		toMillis(token.CreatedAt),
		toMillis(token.ExpiresAt),
		usedAt,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", s.table, err)
	}
	return nil
}

func (s *TokenStore) GetByHash(ctx context.Context, hash string) (*identity.OneTimeToken, error) {
	row := s.sqlDB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, token_hash, created_at, expires_at, used_at
		FROM %s WHERE token_hash = ?`, s.table),
		hash,
	)

	var (
		token     identity.OneTimeToken
		createdAt int64
		expiresAt int64
		usedAt    sql.NullInt64
	)
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.SecretHash,
		&createdAt,
		&expiresAt,
		&usedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	token.CreatedAt = fromMillis(createdAt)
	token.ExpiresAt = fromMillis(expiresAt)
	if usedAt.Valid {
		at := fromMillis(usedAt.Int64)
		token.UsedAt = &at
	}
	return &token, nil
}

func (s *TokenStore) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET used_at = ? WHERE id = ? AND used_at IS NULL`, s.table),
		toMillis(at), id)
	if err != nil {
		return false, fmt.Errorf("mark %s used: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *TokenStore) InvalidateForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET used_at = ? WHERE user_id = ? AND used_at IS NULL`, s.table),
		toMillis(at), userID)
	if err != nil {
		return fmt.Errorf("invalidate %s for user: %w", s.table, err)
	}
	return nil
}

func (s *TokenStore) CountRecentForUser(ctx context.Context, userID string, since time.Time) (int, error) {
	row := s.sqlDB.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE user_id = ? AND created_at >= ?`, s.table),
		userID, toMillis(since))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent %s: %w", s.table, err)
	}
	return count, nil
}

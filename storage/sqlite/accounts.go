package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	identity "github.com/opencourse/identity"
)

// AccountStore implements identity.AccountStore over the accounts table.
type AccountStore struct {
	sqlDB *sql.DB
}

func (s *AccountStore) Create(ctx context.Context, account *identity.UserAccount) error {
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, name, role, is_verified, email_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Name,
		string(account.Role),
		boolToInt(account.IsVerified),
		boolToInt(account.EmailVerified),
		toMillis(account.CreatedAt),
	)
	if isUniqueViolation(err) {
		return identity.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*identity.UserAccount, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, role, is_verified, email_verified, created_at
		FROM accounts WHERE lower(email) = lower(?)`,
		email,
	)
	return scanAccount(row)
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*identity.UserAccount, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, role, is_verified, email_verified, created_at
		FROM accounts WHERE id = ?`,
		id,
	)
	return scanAccount(row)
}

func (s *AccountStore) ListUnverifiedTeachers(ctx context.Context, limit, offset int) ([]*identity.UserAccount, int, error) {
	var total int
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT count(*) FROM accounts WHERE role = 'teacher' AND is_verified = 0`,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count pending teachers: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, email, password_hash, name, role, is_verified, email_verified, created_at
		FROM accounts WHERE role = 'teacher' AND is_verified = 0
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending teachers: %w", err)
	}
	defer rows.Close()

	var teachers []*identity.UserAccount
	for rows.Next() {
		account, err := scanAccountRows(rows)
		if err != nil {
			return nil, 0, err
		}
		teachers = append(teachers, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pending teachers: %w", err)
	}
	return teachers, total, nil
}

func (s *AccountStore) SetVerified(ctx context.Context, id string, verified bool) error {
	return s.updateFlag(ctx, "is_verified", id, verified)
}

func (s *AccountStore) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	return s.updateFlag(ctx, "email_verified", id, verified)
}

func (s *AccountStore) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ?`, newHash, id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return mustAffectOne(res)
}

func (s *AccountStore) updateFlag(ctx context.Context, column, id string, value bool) error {
	res, err := s.sqlDB.ExecContext(ctx,
		fmt.Sprintf(`UPDATE accounts SET %s = ? WHERE id = ?`, column), boolToInt(value), id)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	return mustAffectOne(res)
}

func mustAffectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*identity.UserAccount, error) {
	account, err := scanAccountRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	return account, err
}

func scanAccountRows(row rowScanner) (*identity.UserAccount, error) {
	var (
		account       identity.UserAccount
		role          string
		isVerified    int
		emailVerified int
		createdAt     int64
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&role,
		&isVerified,
		&emailVerified,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	account.Role = identity.Role(role)
	account.IsVerified = isVerified != 0
	account.EmailVerified = emailVerified != 0
	account.CreatedAt = fromMillis(createdAt)
	return &account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

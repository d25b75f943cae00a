package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Register creates a new account and returns a fresh token pair. Teacher
// accounts start unapproved; the is_verified claim stays false until an
// admin verifies them. When a verification token store is configured, a
// verification token is issued as a side effect.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	role := req.Role
	if role == "" {
		role = s.config.Account.DefaultRole
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if len(req.Password) < s.config.Password.MinLength {
		return nil, ErrPasswordPolicy
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &UserAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		CreatedAt:    s.now(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			s.metricInc(MetricRegisterConflict)
			s.emitAudit(ctx, auditEventRegisterConflict, false, "", email, ErrConflict, nil)
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.verificationTokens != nil {
		// Email delivery problems must not fail the registration; the
		// user can ask for a resend.
		if err := s.issueVerificationToken(ctx, account); err != nil {
			s.logger.WarnContext(ctx, "verification token issue failed",
				"user_id", account.ID, "error", err)
		}
	}

	tokens, err := s.issueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	s.metricInc(MetricRegisterSuccess)
	s.emitAudit(ctx, auditEventRegisterSuccess, true, account.ID, email, nil, func() map[string]string {
		return map[string]string{
			"role": string(account.Role),
		}
	})

	return &AuthResult{User: account, Tokens: tokens}, nil
}

// Authenticate verifies an email/password pair and returns a fresh token
// pair. Unknown email and wrong password both fail with
// [ErrInvalidCredentials] so callers cannot probe which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, plaintext string) (*AuthResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metricInc(MetricLoginFailure)
			s.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	ok, err := s.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil || !ok {
		s.metricInc(MetricLoginFailure)
		s.emitAudit(ctx, auditEventLoginFailure, false, account.ID, email, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if s.config.Password.UpgradeOnLogin {
		s.maybeUpgradeHash(ctx, account, plaintext)
	}

	tokens, err := s.issueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	s.metricInc(MetricLoginSuccess)
	s.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, email, nil, nil)

	return &AuthResult{User: account, Tokens: tokens}, nil
}

// GetByID returns the account record for an authenticated caller.
func (s *Service) GetByID(ctx context.Context, id string) (*UserAccount, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.accounts.GetByID(ctx, id)
}

// maybeUpgradeHash transparently re-hashes the password when the stored
// hash was produced with weaker parameters. Failures are logged, never
// surfaced: the login already succeeded.
func (s *Service) maybeUpgradeHash(ctx context.Context, account *UserAccount, plaintext string) {
	upgrade, err := s.hasher.NeedsRehash(account.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	newHash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"user_id", account.ID, "error", err)
		return
	}
	account.PasswordHash = newHash
}

package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/opencourse/identity/internal/secrets"
)

// ForgotPassword starts a password reset. It returns nil whether or not the
// email exists and whether or not the silent rate limit was hit; callers
// get no signal they could use to enumerate accounts. Only genuine storage
// failures surface as errors.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.resetTokens == nil {
		return ErrPasswordResetDisabled
	}

	email = normalizeEmail(email)
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.emitAudit(ctx, auditEventResetRequested, true, "", email, nil, func() map[string]string {
				return map[string]string{"outcome": "unknown_email"}
			})
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}

	now := s.now()
	recent, err := s.resetTokens.CountRecentForUser(ctx, account.ID, now.Add(-s.config.PasswordReset.RequestWindow))
	if err != nil {
		return fmt.Errorf("count recent reset tokens: %w", err)
	}
	if recent >= s.config.PasswordReset.MaxRequests {
		s.emitAudit(ctx, auditEventResetRequested, true, account.ID, email, nil, func() map[string]string {
			return map[string]string{"outcome": "rate_limited"}
		})
		return nil
	}

	raw, err := secrets.New()
	if err != nil {
		return fmt.Errorf("generate reset secret: %w", err)
	}

	// Superseded tokens are marked used, not deleted, so the issuance rows
	// above stay countable for the window check.
	if err := s.resetTokens.InvalidateForUser(ctx, account.ID, now); err != nil {
		return fmt.Errorf("invalidate outstanding reset tokens: %w", err)
	}

	token := &OneTimeToken{
		ID:         uuid.NewString(),
		UserID:     account.ID,
		SecretHash: secrets.Hash(raw),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.config.PasswordReset.TokenTTL),
	}
	if err := s.resetTokens.Create(ctx, token); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	if err := s.delivery.DeliverPasswordReset(ctx, account, raw); err != nil {
		// The token is stored; delivery can be retried by a fresh
		// request. Stay silent towards the caller.
		s.logger.WarnContext(ctx, "reset token delivery failed",
			"user_id", account.ID, "error", err)
	}

	s.metricInc(MetricResetRequested)
	s.emitAudit(ctx, auditEventResetRequested, true, account.ID, email, nil, func() map[string]string {
		return map[string]string{"outcome": "issued"}
	})
	return nil
}

// ResetPassword redeems a reset token, replaces the account password, and
// revokes every refresh token the user holds so a stolen session cannot
// survive the credential change.
func (s *Service) ResetPassword(ctx context.Context, secret, newPassword string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.resetTokens == nil {
		return ErrPasswordResetDisabled
	}

	if len(newPassword) < s.config.Password.MinLength {
		return ErrPasswordPolicy
	}

	token, err := s.redeemOneTimeToken(ctx, s.resetTokens, secret)
	if err != nil {
		s.metricInc(MetricResetFailure)
		s.emitAudit(ctx, auditEventResetFailure, false, "", "", err, nil)
		return err
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, token.UserID, newHash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	if err := s.sessions.InvalidateAllForUser(ctx, token.UserID); err != nil {
		return fmt.Errorf("invalidate sessions: %w", err)
	}

	s.metricInc(MetricResetSuccess)
	s.emitAudit(ctx, auditEventResetSuccess, true, token.UserID, "", nil, nil)
	return nil
}

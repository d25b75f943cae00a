package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/opencourse/identity/internal/secrets"
)

// VerifyEmail redeems a verification token and flips the owning account's
// email_verified flag. Redemption is single-use: concurrent calls with the
// same secret produce exactly one success and [ErrTokenAlreadyUsed] for the
// rest.
func (s *Service) VerifyEmail(ctx context.Context, secret string) (*UserAccount, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.verificationTokens == nil {
		return nil, ErrVerificationDisabled
	}

	token, err := s.redeemOneTimeToken(ctx, s.verificationTokens, secret)
	if err != nil {
		s.metricInc(MetricVerificationFailure)
		s.emitAudit(ctx, auditEventVerificationFailure, false, "", "", err, nil)
		return nil, err
	}

	if err := s.accounts.SetEmailVerified(ctx, token.UserID, true); err != nil {
		return nil, fmt.Errorf("set email verified: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	s.metricInc(MetricVerificationSuccess)
	s.emitAudit(ctx, auditEventVerificationSuccess, true, account.ID, account.Email, nil, nil)

	return account, nil
}

// ResendVerification issues a fresh verification token for an account whose
// email is still unverified, invalidating any prior outstanding token.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.verificationTokens == nil {
		return ErrVerificationDisabled
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return ErrConflict
	}

	return s.issueVerificationToken(ctx, account)
}

// issueVerificationToken replaces any outstanding verification token for
// the account and hands the new plaintext secret to the delivery
// collaborator. Only one outstanding token per account at a time.
func (s *Service) issueVerificationToken(ctx context.Context, account *UserAccount) error {
	raw, err := secrets.New()
	if err != nil {
		return fmt.Errorf("generate verification secret: %w", err)
	}

	now := s.now()
	if err := s.verificationTokens.InvalidateForUser(ctx, account.ID, now); err != nil {
		return fmt.Errorf("invalidate outstanding verification tokens: %w", err)
	}

	token := &OneTimeToken{
		ID:         uuid.NewString(),
		UserID:     account.ID,
		SecretHash: secrets.Hash(raw),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.config.Verification.TokenTTL),
	}
	if err := s.verificationTokens.Create(ctx, token); err != nil {
		return fmt.Errorf("persist verification token: %w", err)
	}

	if err := s.delivery.DeliverVerification(ctx, account, raw); err != nil {
		return fmt.Errorf("deliver verification token: %w", err)
	}

	s.metricInc(MetricVerificationIssued)
	s.emitAudit(ctx, auditEventVerificationIssued, true, account.ID, account.Email, nil, nil)
	return nil
}

// redeemOneTimeToken runs the shared lookup / expiry / single-use checks
// for verification and reset tokens. The mark-used step is an atomic
// conditional update in the store; a caller that loses the race gets
// ErrTokenAlreadyUsed exactly as if it had arrived late.
func (s *Service) redeemOneTimeToken(ctx context.Context, store OneTimeTokenStore, secret string) (*OneTimeToken, error) {
	if err := secrets.Validate(secret); err != nil {
		return nil, ErrInvalidToken
	}

	token, err := store.GetByHash(ctx, secrets.Hash(secret))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load one-time token: %w", err)
	}

	if token.UsedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}

	now := s.now()
	if token.Expired(now) {
		return nil, ErrTokenExpired
	}

	used, err := store.MarkUsed(ctx, token.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}
	if !used {
		return nil, ErrTokenAlreadyUsed
	}

	usedAt := now
	token.UsedAt = &usedAt
	return token, nil
}

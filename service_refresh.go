package identity

import (
	"context"
	"errors"
	"fmt"
)

// Refresh exchanges a live refresh token for a new token pair. The account
// record is re-read so the access-token claims reflect current role and
// verification state, not the state at login time.
//
// Presenting an already-spent token returns [ErrTokenReuseDetected] after
// the whole family has been revoked; clients must force a full login.
func (s *Service) Refresh(ctx context.Context, refreshSecret string) (*AuthResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rotation, err := s.sessions.Rotate(ctx, refreshSecret)
	if err != nil {
		mapped := mapSessionError(err)
		switch {
		case errors.Is(mapped, ErrTokenReuseDetected):
			s.metricInc(MetricRefreshReuseDetected)
			s.emitAudit(ctx, auditEventRefreshReuseDetected, false, "", "", mapped, nil)
		case errors.Is(mapped, ErrInvalidRefreshToken), errors.Is(mapped, ErrRefreshTokenExpired):
			s.metricInc(MetricRefreshFailure)
			s.emitAudit(ctx, auditEventRefreshFailure, false, "", "", mapped, nil)
		}
		return nil, mapped
	}

	account, err := s.accounts.GetByID(ctx, rotation.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Token lineage outlived the account. Nothing to refresh.
			s.metricInc(MetricRefreshFailure)
			s.emitAudit(ctx, auditEventRefreshFailure, false, rotation.UserID, "", ErrNotFound, nil)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	access, err := s.mintAccess(account)
	if err != nil {
		return nil, err
	}

	s.metricInc(MetricRefreshSuccess)
	s.emitAudit(ctx, auditEventRefreshSuccess, true, account.ID, "", nil, nil)

	return &AuthResult{
		User: account,
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: rotation.RefreshToken,
			TokenType:    "bearer",
		},
	}, nil
}

// Logout revokes the presented token's whole family. Unknown and already
// revoked tokens are silent successes, so repeated logouts are harmless.
func (s *Service) Logout(ctx context.Context, refreshSecret string) error {
	if err := s.ready(); err != nil {
		return err
	}

	if err := s.sessions.Invalidate(ctx, refreshSecret); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}

	s.metricInc(MetricLogout)
	s.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
	return nil
}

// PurgeExpiredTokens removes refresh tokens whose lifetime has elapsed.
// Intended for a periodic maintenance job; revoked-but-unexpired rows are
// kept because reuse detection still needs them.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.sessions.PurgeExpired(ctx)
}

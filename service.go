package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opencourse/identity/jwt"
	"github.com/opencourse/identity/session"
)

// PasswordHasher is the hashing contract the Service depends on. The
// default implementation is the argon2id hasher in the password package.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// Service is the credential-and-session authority. It composes the stores,
// the hasher, the access-token codec, and the session manager into the
// register / login / refresh / logout / verification / reset / admin flows.
//
// Construct through [New] and [Builder.Build]; a zero Service returns
// [ErrServiceNotReady] from every flow.
type Service struct {
	config Config

	accounts           AccountStore
	sessions           *session.Manager
	verificationTokens OneTimeTokenStore
	resetTokens        PasswordResetTokenStore

	delivery TokenDelivery
	hasher   PasswordHasher
	codec    *jwt.Codec

	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger

	now func() time.Time
}

// Close flushes and stops the audit dispatcher. The Service must not be
// used after Close.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.audit.Close()
}

// Metrics exposes the in-process counters for export bridges.
func (s *Service) Metrics() *Metrics {
	if s == nil {
		return nil
	}
	return s.metrics
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.Metrics().Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (s *Service) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

// VerifyAccessToken validates a bearer token and returns its claims. This
// is the stateless check resource servers run on every request.
func (s *Service) VerifyAccessToken(token string) (*jwt.Claims, error) {
	if s == nil || s.codec == nil {
		return nil, ErrServiceNotReady
	}
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

func (s *Service) ready() error {
	if s == nil || s.accounts == nil || s.sessions == nil || s.hasher == nil || s.codec == nil {
		return ErrServiceNotReady
	}
	return nil
}

// issueTokens mints an access token from the current account state and
// starts a brand-new refresh-token family.
func (s *Service) issueTokens(ctx context.Context, user *UserAccount) (TokenPair, error) {
	access, err := s.mintAccess(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

func (s *Service) mintAccess(user *UserAccount) (string, error) {
	access, err := s.codec.Mint(user.ID, string(user.Role), user.IsVerified, user.EmailVerified)
	if err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}
	return access, nil
}

// mapSessionError translates session-package sentinels to the public taxonomy.
func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidToken):
		return ErrInvalidRefreshToken
	case errors.Is(err, session.ErrTokenExpired):
		return ErrRefreshTokenExpired
	case errors.Is(err, session.ErrReuseDetected):
		return ErrTokenReuseDetected
	default:
		return err
	}
}

func (s *Service) metricInc(id MetricID) {
	s.metrics.Inc(id)
}

// emitAudit queues an audit event. The metadata callback runs only when the
// dispatcher is active, so flows pay nothing with auditing disabled.
func (s *Service) emitAudit(ctx context.Context, eventType string, success bool, userID, email string, failure error, metadata func() map[string]string) {
	if s.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: s.now(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		Success:   success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	s.audit.Emit(ctx, event)
}

package identity

import (
	"context"
	"log/slog"
)

// TokenDelivery hands raw one-time secrets to an out-of-band channel,
// typically a mailer. The service never transmits these secrets itself.
type TokenDelivery interface {
	DeliverVerification(ctx context.Context, user *UserAccount, rawToken string) error
	DeliverPasswordReset(ctx context.Context, user *UserAccount, rawToken string) error
}

// LogDelivery writes raw tokens to the logger instead of delivering them.
// It exists for development and tests only; the plaintext secret appears in
// the log output. Production deployments must supply a real [TokenDelivery].
type LogDelivery struct {
	logger *slog.Logger
}

// NewLogDelivery creates a [LogDelivery] on the given logger. A nil logger
// falls back to [slog.Default].
func NewLogDelivery(logger *slog.Logger) *LogDelivery {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDelivery{logger: logger}
}

func (d *LogDelivery) DeliverVerification(ctx context.Context, user *UserAccount, rawToken string) error {
	d.logger.WarnContext(ctx, "dev-only token delivery",
		"kind", "email_verification",
		"user_id", user.ID,
		"email", user.Email,
		"token", rawToken,
	)
	return nil
}

func (d *LogDelivery) DeliverPasswordReset(ctx context.Context, user *UserAccount, rawToken string) error {
	d.logger.WarnContext(ctx, "dev-only token delivery",
		"kind", "password_reset",
		"user_id", user.ID,
		"email", user.Email,
		"token", rawToken,
	)
	return nil
}

package identity

import (
	"errors"
	"log/slog"
	"time"

	"github.com/opencourse/identity/jwt"
	"github.com/opencourse/identity/password"
	"github.com/opencourse/identity/session"
)

// Builder wires a [Service] from its configuration and collaborators.
// Account and refresh-token stores are required; verification and reset
// token stores are optional and gate their flows when absent.
type Builder struct {
	config Config

	accounts           AccountStore
	refreshTokens      RefreshTokenStore
	verificationTokens OneTimeTokenStore
	resetTokens        PasswordResetTokenStore

	delivery  TokenDelivery
	hasher    PasswordHasher
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New creates a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAccountStore sets the required account persistence.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithRefreshTokenStore sets the required refresh-token persistence.
func (b *Builder) WithRefreshTokenStore(store RefreshTokenStore) *Builder {
	b.refreshTokens = store
	return b
}

// WithVerificationTokenStore enables the email-verification flows.
func (b *Builder) WithVerificationTokenStore(store OneTimeTokenStore) *Builder {
	b.verificationTokens = store
	return b
}

// WithPasswordResetTokenStore enables the password-reset flows.
func (b *Builder) WithPasswordResetTokenStore(store PasswordResetTokenStore) *Builder {
	b.resetTokens = store
	return b
}

// WithDelivery sets the out-of-band secret delivery collaborator. When
// omitted, a [LogDelivery] development fallback is used.
func (b *Builder) WithDelivery(delivery TokenDelivery) *Builder {
	b.delivery = delivery
	return b
}

// WithPasswordHasher overrides the argon2id hasher built from
// [PasswordConfig]. Mainly useful for tests that need cheaper parameters.
func (b *Builder) WithPasswordHasher(hasher PasswordHasher) *Builder {
	b.hasher = hasher
	return b
}

// WithAuditSink sets the audit event destination.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs all internal collaborators,
// and returns the ready Service. A Builder is single-use.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.refreshTokens == nil {
		return nil, errors.New("refresh token store required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	hasher := b.hasher
	if hasher == nil {
		argon, err := password.New(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		hasher = argon
	}

	codec, err := jwt.NewCodec(jwt.Config{
		AccessTTL:     cfg.AccessToken.TTL,
		SigningMethod: jwt.SigningMethod(cfg.AccessToken.SigningMethod),
		PrivateKey:    cloneBytes(cfg.AccessToken.PrivateKey),
		PublicKey:     cloneBytes(cfg.AccessToken.PublicKey),
		Issuer:        cfg.AccessToken.Issuer,
		Audience:      cfg.AccessToken.Audience,
		Leeway:        cfg.AccessToken.Leeway,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(b.refreshTokens, session.Config{
		TTL: cfg.RefreshToken.TTL,
	})
	if err != nil {
		return nil, err
	}

	delivery := b.delivery
	if delivery == nil {
		delivery = NewLogDelivery(logger)
	}

	svc := &Service{
		config:             cfg,
		accounts:           b.accounts,
		sessions:           sessions,
		verificationTokens: b.verificationTokens,
		resetTokens:        b.resetTokens,
		delivery:           delivery,
		hasher:             hasher,
		codec:              codec,
		audit:              newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:            NewMetrics(cfg.Metrics),
		logger:             logger,
		now:                time.Now,
	}

	b.built = true

	return svc, nil
}

package identity

import (
	"errors"
	"time"
)

// Config is the full configuration tree for a [Service]. Instances are
// cloned at build time and treated as immutable afterwards.
type Config struct {
	AccessToken   AccessTokenConfig
	RefreshToken  RefreshTokenConfig
	Password      PasswordConfig
	Verification  VerificationConfig
	PasswordReset PasswordResetConfig
	Account       AccountConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
ACCESS TOKEN CONFIG
====================================
*/

// AccessTokenConfig holds the signing material and validation options for
// minted access tokens.
type AccessTokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
REFRESH TOKEN CONFIG
====================================
*/

// RefreshTokenConfig holds the rotating refresh-token lifetime.
type RefreshTokenConfig struct {
	TTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters and the password policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
ONE-TIME TOKEN CONFIG
====================================
*/

// VerificationConfig holds email-verification token settings.
type VerificationConfig struct {
	TokenTTL time.Duration
}

// PasswordResetConfig holds password-reset token settings. MaxRequests
// tokens per RequestWindow is enforced silently by counting stored rows,
// with no externally observable rejection.
type PasswordResetConfig struct {
	TokenTTL      time.Duration
	MaxRequests   int
	RequestWindow time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig holds registration defaults.
type AccountConfig struct {
	DefaultRole Role
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Callers override what
// they need and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		AccessToken: AccessTokenConfig{
			TTL:           15 * time.Minute,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		RefreshToken: RefreshTokenConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Verification: VerificationConfig{
			TokenTTL: 24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:      time.Hour,
			MaxRequests:   3,
			RequestWindow: time.Hour,
		},
		Account: AccountConfig{
			DefaultRole: RoleStudent,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.AccessToken.PrivateKey = cloneBytes(cfg.AccessToken.PrivateKey)
	out.AccessToken.PublicKey = cloneBytes(cfg.AccessToken.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration tree for values that cannot produce a
// working Service.
func (c *Config) Validate() error {
	// Access token
	if c.AccessToken.TTL <= 0 {
		return errors.New("AccessToken TTL must be > 0")
	}
	if c.AccessToken.SigningMethod != "hs256" && c.AccessToken.SigningMethod != "ed25519" {
		return errors.New("unsupported access token signing method")
	}
	if c.AccessToken.SigningMethod == "hs256" && len(c.AccessToken.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.AccessToken.SigningMethod == "ed25519" && len(c.AccessToken.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.AccessToken.SigningMethod == "ed25519" && len(c.AccessToken.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.AccessToken.Leeway < 0 || c.AccessToken.Leeway > 2*time.Minute {
		return errors.New("AccessToken Leeway must be between 0 and 2m")
	}

	// Refresh token
	if c.RefreshToken.TTL <= 0 {
		return errors.New("RefreshToken TTL must be > 0")
	}
	if c.RefreshToken.TTL <= c.AccessToken.TTL {
		return errors.New("RefreshToken TTL must exceed AccessToken TTL")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// One-time tokens
	if c.Verification.TokenTTL <= 0 {
		return errors.New("Verification TokenTTL must be > 0")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.MaxRequests <= 0 {
		return errors.New("PasswordReset MaxRequests must be > 0")
	}
	if c.PasswordReset.RequestWindow <= 0 {
		return errors.New("PasswordReset RequestWindow must be > 0")
	}

	// Account
	if !c.Account.DefaultRole.Valid() {
		return errors.New("Account DefaultRole is invalid")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}

	return nil
}

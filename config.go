package auth

import (
	"bytes"
	"errors"
	"time"
)

// Config defines the engine configuration. Instances are intended to be
// configured during initialization and then treated as immutable.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Account  AccountConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig carries signing secrets and lifetimes for both token kinds.
// The two secrets must differ so an access token can never be replayed on
// the refresh path.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session key namespace.
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig mirrors the argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration validation.
type AccountConfig struct {
	MinPasswordLength    int
	MaxDisplayNameLength int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration used by the clipstream services.
// Signing secrets are intentionally absent — they must come from the host.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "clipstream",
			Leeway:     30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "sess",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Account: AccountConfig{
			MinPasswordLength:    6,
			MaxDisplayNameLength: 64,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks cross-field invariants the leaf packages cannot see.
// Leaf-level validation (TTL ordering, argon2 minimums) happens again in the
// respective constructors during Build.
func (c Config) Validate() error {
	if len(c.Token.AccessSecret) == 0 || len(c.Token.RefreshSecret) == 0 {
		return errors.New("token secrets are required")
	}
	if bytes.Equal(c.Token.AccessSecret, c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix is required")
	}
	if c.Account.MinPasswordLength < 6 {
		return errors.New("minimum password length must be >= 6")
	}
	if c.Account.MaxDisplayNameLength <= 0 {
		return errors.New("maximum display name length must be positive")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

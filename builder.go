package auth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/clipstream/auth/password"
	"github.com/clipstream/auth/session"
	"github.com/clipstream/auth/token"
)

// Builder assembles an [Engine]. Obtain one with [New], chain the With*
// setters, then call [Builder.Build] exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts AccountProvider

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccounts sets the account provider the engine resolves accounts through.
func (b *Builder) WithAccounts(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs the codec, session store,
// and password hasher, and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// Pair lifetime is bounded by the refresh TTL: once the refresh token
	// can no longer be exchanged, the stored pair is dead weight.
	store := session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Token.RefreshTTL)

	b.built = true

	return &Engine{
		config:   cfg,
		codec:    codec,
		sessions: store,
		accounts: b.accounts,
		hasher:   hasher,
		metrics:  NewMetrics(cfg.Metrics),
	}, nil
}

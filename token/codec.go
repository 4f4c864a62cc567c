package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two credential types issued by the [Codec].
type Kind string

const (
	// KindAccess marks short-lived tokens that authorize individual requests.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived tokens used solely to obtain new access tokens.
	KindRefresh Kind = "refresh"
)

var (
	// ErrMalformed is returned when a token fails signature or structural checks.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired is returned when a token is past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrKindMismatch is returned when a token of the wrong kind is presented.
	ErrKindMismatch = errors.New("token kind mismatch")
)

// Config carries the signing material and lifetimes for both token kinds.
//
// Config instances are intended to be configured during initialization and then
// treated as immutable.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Codec creates and verifies the signed, expiring bearer tokens that make up a
// session pair. Access and refresh tokens are signed with distinct secrets so
// that one kind can never be replayed as the other.
type Codec struct {
	config Config
}

// Claims is the payload carried by every issued token.
type Claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("both access and refresh secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Codec{config: cfg}, nil
}

// Issue signs a new token of the given kind for accountID. The expiry is
// issued-at plus the configured TTL for that kind.
func (c *Codec) Issue(accountID string, kind Kind) (string, error) {
	secret, err := c.secretFor(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses and validates a token against the secret for the expected
// kind. It returns [ErrExpired] for unexpired-window violations,
// [ErrKindMismatch] when the payload declares the other kind, and
// [ErrMalformed] for every other defect (bad signature, wrong issuer,
// truncated payload).
func (c *Codec) Verify(tokenStr string, kind Kind) (*Claims, error) {
	secret, err := c.secretFor(kind)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, ErrKindMismatch
	}

	return claims, nil
}

// TTL reports the configured lifetime for a token kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.config.RefreshTTL
	}
	return c.config.AccessTTL
}

func (c *Codec) secretFor(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess:
		return c.config.AccessSecret, nil
	case KindRefresh:
		return c.config.RefreshSecret, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrKindMismatch, kind)
	}
}

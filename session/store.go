package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when the account has no active session.
	ErrNotFound = errors.New("session not found")
	// ErrRefreshMismatch is returned when the presented refresh token does not
	// equal the stored one.
	ErrRefreshMismatch = errors.New("refresh token mismatch")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	replaceStatusNotFound int64 = 0
	replaceStatusMismatch int64 = 1
	replaceStatusReplaced int64 = 2
)

// replaceAccessScript swaps the access slot only when the presented refresh
// token still equals the stored one. Running it as a single script closes the
// window between "read stored refresh" and "write new access" in which a
// logout or competing login could land.
const replaceAccessScript = `
local stored = redis.call("HGET", KEYS[1], "refresh")
if not stored or stored == "" then
  return 0
end
if stored ~= ARGV[1] then
  return 1
end
redis.call("HSET", KEYS[1], "access", ARGV[2])
return 2
`

var replaceAccessLua = redis.NewScript(replaceAccessScript)

// Pair is the currently-valid token pair for one account.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Store is a Redis-backed session store holding exactly one token pair per
// account. Writes are last-writer-wins: two concurrent logins for the same
// account race and one pair survives, which is the specified single-session
// semantics rather than a defect.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the key namespace; ttl bounds how long an untouched pair
// survives (normally the refresh token lifetime).
func NewStore(redis redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) key(accountID string) string {
	return s.prefix + ":" + accountID
}

// Set overwrites both slots of the account's pair. The HSET carries both
// fields in one command, so readers never observe a half-written pair; any
// previously issued tokens for this account stop validating immediately.
func (s *Store) Set(ctx context.Context, accountID, accessToken, refreshToken string) error {
	key := s.key(accountID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "access", accessToken, "refresh", refreshToken)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get returns the account's current pair, or [ErrNotFound] when the account
// has no active session.
func (s *Store) Get(ctx context.Context, accountID string) (Pair, error) {
	values, err := s.redis.HMGet(ctx, s.key(accountID), "access", "refresh").Result()
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	access, _ := values[0].(string)
	refresh, _ := values[1].(string)
	if access == "" || refresh == "" {
		return Pair{}, ErrNotFound
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// ReplaceAccess writes a new access token into the pair if and only if
// refreshToken still equals the stored refresh slot. Returns [ErrNotFound]
// when no session exists (logout already happened) and [ErrRefreshMismatch]
// when the slot was overwritten by a newer login.
func (s *Store) ReplaceAccess(ctx context.Context, accountID, refreshToken, newAccessToken string) error {
	status, err := replaceAccessLua.Run(
		ctx,
		s.redis,
		[]string{s.key(accountID)},
		refreshToken,
		newAccessToken,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case replaceStatusNotFound:
		return ErrNotFound
	case replaceStatusMismatch:
		return ErrRefreshMismatch
	case replaceStatusReplaced:
		return nil
	default:
		return fmt.Errorf("%w: unknown replace script status %d", ErrRedisUnavailable, status)
	}
}

// Clear deletes the account's pair. Clearing an absent session is a no-op,
// which makes logout idempotent.
func (s *Store) Clear(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

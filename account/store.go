package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clipstream/auth"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("account redis unavailable")

const (
	createStatusDuplicate int64 = 0
	createStatusCreated   int64 = 1
)

// createAccountLua claims the email index and writes the account record in
// one step, so two concurrent registrations for the same email cannot both
// succeed.
// KEYS[1] = email index key, KEYS[2] = account record key
// ARGV[1] = account id, ARGV[2] = encoded account record
var createAccountLua = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2])
return 1
`)

type record struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a Redis-backed [auth.AccountProvider]. Records live as JSON under
// acct:<id>; acctemail:<email> maps each email to its account id and doubles
// as the uniqueness lock taken at creation.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates an account [Store]. prefix namespaces both key families;
// an empty prefix defaults to "acct".
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "acct"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) recordKey(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + "email:" + strings.ToLower(email)
}

// Create stores a new account. Returns [auth.ErrAccountExists] when the email
// is already claimed.
func (s *Store) Create(ctx context.Context, in auth.CreateAccountInput) (auth.Account, error) {
	rec := record{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(in.Email),
		DisplayName:  in.DisplayName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return auth.Account{}, fmt.Errorf("encode account record: %w", err)
	}

	status, err := createAccountLua.Run(
		ctx,
		s.redis,
		[]string{s.emailKey(rec.Email), s.recordKey(rec.ID)},
		rec.ID,
		encoded,
	).Int64()
	if err != nil {
		return auth.Account{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case createStatusDuplicate:
		return auth.Account{}, auth.ErrAccountExists
	case createStatusCreated:
		return rec.account(), nil
	default:
		return auth.Account{}, fmt.Errorf("%w: unknown create script status %d", ErrRedisUnavailable, status)
	}
}

// GetByID returns the account with the given id, or [auth.ErrAccountNotFound].
func (s *Store) GetByID(ctx context.Context, id string) (auth.Account, error) {
	data, err := s.redis.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Account{}, auth.ErrAccountNotFound
		}
		return auth.Account{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return decodeRecord(data)
}

// GetByEmail resolves the email index and loads the account, or returns
// [auth.ErrAccountNotFound].
func (s *Store) GetByEmail(ctx context.Context, email string) (auth.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Account{}, auth.ErrAccountNotFound
		}
		return auth.Account{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	account, err := s.GetByID(ctx, id)
	if errors.Is(err, auth.ErrAccountNotFound) {
		// Dangling index entry; the record key is authoritative.
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return account, err
}

func decodeRecord(data []byte) (auth.Account, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return auth.Account{}, fmt.Errorf("decode account record: %w", err)
	}
	return rec.account(), nil
}

func (r record) account() auth.Account {
	return auth.Account{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

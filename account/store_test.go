package account

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clipstream/auth"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "")
}

func TestCreateAndLookups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, auth.CreateAccountInput{
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "$argon2id$fake",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}

	byID, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.ID != created.ID || byID.Email != created.Email ||
		byID.DisplayName != created.DisplayName || byID.PasswordHash != created.PasswordHash {
		t.Fatalf("GetByID = %+v, want %+v", byID, created)
	}
	if !byID.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", byID.CreatedAt, created.CreatedAt)
	}

	byEmail, err := store.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("GetByEmail id = %q, want %q", byEmail.ID, created.ID)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := auth.CreateAccountInput{
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "$argon2id$fake",
	}
	if _, err := store.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	in.DisplayName = "Impostor"
	if _, err := store.Create(ctx, in); !errors.Is(err, auth.ErrAccountExists) {
		t.Fatalf("duplicate: got %v, want ErrAccountExists", err)
	}
}

func TestLookupMisses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("GetByID: got %v, want ErrAccountNotFound", err)
	}
	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("GetByEmail: got %v, want ErrAccountNotFound", err)
	}
}

func TestEmailLookupIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, auth.CreateAccountInput{
		Email:        "Alice@Example.com",
		DisplayName:  "Alice",
		PasswordHash: "$argon2id$fake",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("stored email = %q, want lowercased", created.Email)
	}

	got, err := store.GetByEmail(ctx, "ALICE@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("GetByEmail id = %q, want %q", got.ID, created.ID)
	}
}

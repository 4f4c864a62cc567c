package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// Concurrent refreshes with the same (non-rotating) refresh token must all
// succeed, and exactly one of the minted access tokens — the last writer —
// remains the live one.
func TestConcurrentRefreshLastWriterWins(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustRegister(t, engine, "alice@example.com")

	pair, _, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	const workers = 16

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		minted []string
	)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			access, err := engine.Refresh(ctx, pair.RefreshToken)
			if err != nil {
				t.Errorf("Refresh: %v", err)
				return
			}
			mu.Lock()
			minted = append(minted, access)
			mu.Unlock()
		}()
	}

	close(start)
	wg.Wait()

	if len(minted) != workers {
		t.Fatalf("minted %d access tokens, want %d", len(minted), workers)
	}

	live := 0
	for _, access := range minted {
		_, err := engine.Authenticate(ctx, access)
		switch {
		case err == nil:
			live++
		case errors.Is(err, ErrTokenStale):
		default:
			t.Fatalf("Authenticate: %v", err)
		}
	}
	if live != 1 {
		t.Fatalf("%d access tokens validate, want exactly 1", live)
	}
}

// A logout racing a refresh must win permanently: once the session is
// cleared, no refresh outcome may bring it back.
func TestRefreshCannotResurrectClearedSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustRegister(t, engine, "alice@example.com")

	pair, account, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	const rounds = 8
	for i := 0; i < rounds; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = engine.Refresh(ctx, pair.RefreshToken)
		}()
		go func() {
			defer wg.Done()
			_ = engine.Logout(ctx, account.ID)
		}()
		wg.Wait()

		// Whatever interleaving happened, after the logout completes a
		// follow-up refresh must find no session.
		if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionAbsent) {
			t.Fatalf("round %d: refresh after logout: got %v, want ErrSessionAbsent", i, err)
		}

		// Restore the session for the next round.
		pair, _, err = engine.Login(ctx, "alice@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("round %d: Login: %v", i, err)
		}
	}
}

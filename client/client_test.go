package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeServer is a minimal stand-in for the auth API: one protected endpoint
// plus a refresh endpoint with counters on both.
type fakeServer struct {
	*httptest.Server

	validAccess   atomic.Value // string
	refreshCalls  atomic.Int64
	requestCalls  atomic.Int64
	refreshStatus atomic.Int64
	refreshDelay  time.Duration
	alwaysReject  atomic.Bool

	mu     sync.Mutex
	bodies []string
}

func newFakeServer(t *testing.T, initialAccess string) *fakeServer {
	t.Helper()

	fs := &fakeServer{}
	fs.validAccess.Store(initialAccess)
	fs.refreshStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		fs.refreshCalls.Add(1)
		if fs.refreshDelay > 0 {
			time.Sleep(fs.refreshDelay)
		}
		if status := int(fs.refreshStatus.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		next := "access-" + time.Now().Format("150405.000000000")
		fs.validAccess.Store(next)
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": next})
	})
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		fs.requestCalls.Add(1)
		if body, _ := io.ReadAll(r.Body); len(body) > 0 {
			fs.mu.Lock()
			fs.bodies = append(fs.bodies, string(body))
			fs.mu.Unlock()
		}
		if fs.alwaysReject.Load() || r.Header.Get("Authorization") != "Bearer "+fs.validAccess.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestClient(t *testing.T, srv *fakeServer, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestDoAttachesBearerAndPassesThrough(t *testing.T) {
	srv := newFakeServer(t, "live-token")
	c := newTestClient(t, srv, Options{})
	c.SetSession(Session{AccessToken: "live-token", RefreshToken: "refresh-token"})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := srv.refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0", got)
	}
}

func TestDoWithoutSession(t *testing.T) {
	srv := newFakeServer(t, "live-token")
	c := newTestClient(t, srv, Options{})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
	if _, err := c.Do(req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("got %v, want ErrNoSession", err)
	}
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	srv := newFakeServer(t, "rotated-away")
	srv.refreshDelay = 50 * time.Millisecond
	c := newTestClient(t, srv, Options{})
	c.SetSession(Session{AccessToken: "stale-token", RefreshToken: "refresh-token"})

	const workers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, workers)
	statuses := make([]int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
			resp, err := c.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}

	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if statuses[i] != http.StatusOK {
			t.Fatalf("worker %d: status = %d, want 200", i, statuses[i])
		}
	}
	if got := srv.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
}

func TestReplayCarriesRequestBody(t *testing.T) {
	srv := newFakeServer(t, "rotated-away")
	c := newTestClient(t, srv, Options{})
	c.SetSession(Session{AccessToken: "stale-token", RefreshToken: "refresh-token"})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/protected", bytes.NewReader([]byte(`{"clip":"42"}`)))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.bodies) != 2 {
		t.Fatalf("server saw %d bodies, want 2 (original + replay)", len(srv.bodies))
	}
	for i, body := range srv.bodies {
		if body != `{"clip":"42"}` {
			t.Fatalf("body %d = %q", i, body)
		}
	}
}

func TestReplayIsBoundedToOneRetry(t *testing.T) {
	srv := newFakeServer(t, "rotated-away")
	c := newTestClient(t, srv, Options{})
	c.SetSession(Session{AccessToken: "stale-token", RefreshToken: "refresh-token"})

	// The refresh succeeds but the server still rejects the replay.
	srv.alwaysReject.Store(true)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want the replay's 401 surfaced", resp.StatusCode)
	}
	if got := srv.requestCalls.Load(); got != 2 {
		t.Fatalf("request attempts = %d, want 2", got)
	}
	if got := srv.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestFailedRefreshTearsDownSession(t *testing.T) {
	srv := newFakeServer(t, "rotated-away")
	srv.refreshStatus.Store(http.StatusUnauthorized)

	var expiredCalls atomic.Int64
	c := newTestClient(t, srv, Options{
		OnSessionExpired: func() { expiredCalls.Add(1) },
	})
	c.SetSession(Session{AccessToken: "stale-token", RefreshToken: "dead-refresh"})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
			_, errs[i] = c.Do(req)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("worker %d: got %v, want ErrSessionExpired", i, err)
		}
	}
	if got := expiredCalls.Load(); got != 1 {
		t.Fatalf("expiry hook fired %d times, want 1", got)
	}
	if s := c.Session(); s.AccessToken != "" || s.RefreshToken != "" {
		t.Fatalf("session not cleared: %+v", s)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
	if _, err := c.Do(req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("after teardown: got %v, want ErrNoSession", err)
	}
}

func TestLoginAndLogoutHelpers(t *testing.T) {
	var logoutSeen atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "alice@example.com" || req.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
		})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer access-1" {
			logoutSeen.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := c.Login(ctx, "alice@example.com", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	if err := c.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s := c.Session(); s.AccessToken != "access-1" || s.RefreshToken != "refresh-1" {
		t.Fatalf("session = %+v", s)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !logoutSeen.Load() {
		t.Fatal("server never saw the logout bearer")
	}
	if s := c.Session(); s.AccessToken != "" {
		t.Fatalf("session not cleared: %+v", s)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without base URL")
	}
	c, err := New(Options{BaseURL: "http://example.test/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if strings.HasSuffix(c.baseURL, "/") {
		t.Fatalf("baseURL not trimmed: %q", c.baseURL)
	}
}

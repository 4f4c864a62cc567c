package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is returned when the session cannot be refreshed. The
// local session has been cleared and the expiry hook, if set, has fired; the
// caller should send the user back to login.
var ErrSessionExpired = errors.New("session expired")

// ErrNoSession is returned by [Client.Do] when no session is loaded.
var ErrNoSession = errors.New("no session loaded")

const defaultRefreshTimeout = 10 * time.Second

// Session is the client-side copy of the token pair.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Options configures a [Client].
type Options struct {
	// BaseURL is the auth server root, e.g. "https://api.clipstream.dev".
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// RefreshTimeout bounds one refresh round trip. The refresh runs on its
	// own deadline, detached from any single caller's context, because its
	// result is shared by every waiter. Defaults to 10s.
	RefreshTimeout time.Duration
	// OnSessionExpired fires once per teardown, after the session is cleared.
	OnSessionExpired func()
}

// Client is an HTTP client that transparently maintains a session pair.
//
// Every request goes out with the current access token. On a 401 the client
// refreshes the access token and replays the request exactly once. Refreshes
// are single-flight: no matter how many requests hit 401 together, one
// refresh call goes to the server and every waiter picks up its result. Only
// a failed refresh tears the session down.
type Client struct {
	http           *http.Client
	baseURL        string
	refreshTimeout time.Duration
	onExpired      func()

	group singleflight.Group

	mu      sync.Mutex
	session Session
}

// New creates a Client. opts.BaseURL is required.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}

	return &Client{
		http:           httpClient,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		refreshTimeout: timeout,
		onExpired:      opts.OnSessionExpired,
	}, nil
}

// SetSession loads a token pair, typically straight from a login response.
func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// ClearSession drops the local pair without calling the server.
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.session = Session{}
	c.mu.Unlock()
}

// Session returns the current pair.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Login authenticates against the server and loads the returned pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return errors.New("login response missing tokens")
	}

	c.SetSession(Session{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken})
	return nil
}

// Logout revokes the session server-side, then clears the local pair. The
// local pair is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	session := c.Session()
	defer c.ClearSession()

	if session.AccessToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

// Do sends req with the current access token attached. On a 401 it refreshes
// the access token — joining any refresh already in flight — and replays the
// request once with the new token. A 401 on the replay is returned to the
// caller as-is; there is no retry loop.
//
// Requests with a body must be replayable: either bodyless or carrying a
// GetBody (which every request built from a *bytes.Reader or *strings.Reader
// has).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	session := c.Session()
	if session.AccessToken == "" {
		return nil, ErrNoSession
	}

	resp, err := c.send(req, session.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drainAndClose(resp.Body)

	newAccess, err := c.refreshAccess(session.AccessToken)
	if err != nil {
		return nil, err
	}

	return c.send(req, newAccess)
}

func (c *Client) send(req *http.Request, accessToken string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.Body != nil {
		if req.GetBody == nil {
			return nil, errors.New("request body is not replayable")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+accessToken)
	return c.http.Do(clone)
}

// refreshAccess returns a usable access token, calling the server at most
// once across all concurrent callers. staleAccess is the token the caller
// just saw rejected; if the session has already moved past it, the current
// token is returned without a network call.
func (c *Client) refreshAccess(staleAccess string) (string, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current.AccessToken != "" && current.AccessToken != staleAccess {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		c.teardown()
		return "", ErrSessionExpired
	}

	value, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.callRefresh(current.RefreshToken)
	})
	if err != nil {
		c.teardown()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	return value.(string), nil
}

func (c *Client) callRefresh(refreshToken string) (string, error) {
	// Detached from caller contexts: the result is shared, so one caller
	// cancelling must not fail the refresh for everyone else.
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refresh failed: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("refresh response missing access token")
	}

	c.mu.Lock()
	c.session.AccessToken = payload.AccessToken
	c.mu.Unlock()

	return payload.AccessToken, nil
}

// teardown clears the session and fires the expiry hook exactly once per
// loaded session.
func (c *Client) teardown() {
	c.mu.Lock()
	hadSession := c.session.AccessToken != "" || c.session.RefreshToken != ""
	c.session = Session{}
	c.mu.Unlock()

	if hadSession && c.onExpired != nil {
		c.onExpired()
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

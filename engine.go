package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/clipstream/auth/password"
	"github.com/clipstream/auth/session"
	"github.com/clipstream/auth/token"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Engine drives the session token lifecycle: registration, login, request
// authentication, access refresh, and logout. Construct one through [New].
type Engine struct {
	config   Config
	codec    *token.Codec
	sessions *session.Store
	accounts AccountProvider
	hasher   *password.Hasher
	metrics  *Metrics
}

func (e *Engine) ready() error {
	if e == nil || e.codec == nil || e.sessions == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Register validates the submitted details, hashes the password, and creates
// the account. Validation failures wrap [ErrAccountInvalid]; a duplicate
// email surfaces as [ErrAccountExists] from the provider. Registration does
// not start a session; the caller logs in afterwards.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Account, error) {
	if err := e.ready(); err != nil {
		return Account{}, err
	}

	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = normalizeEmail(in.Email)

	if in.DisplayName == "" {
		return Account{}, fmt.Errorf("%w: display name is required", ErrAccountInvalid)
	}
	if len(in.DisplayName) > e.config.Account.MaxDisplayNameLength {
		return Account{}, fmt.Errorf("%w: display name too long", ErrAccountInvalid)
	}
	if !emailPattern.MatchString(in.Email) {
		return Account{}, fmt.Errorf("%w: malformed email", ErrAccountInvalid)
	}
	if len(in.Password) < e.config.Account.MinPasswordLength {
		return Account{}, fmt.Errorf("%w: password must be at least %d characters",
			ErrAccountInvalid, e.config.Account.MinPasswordLength)
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := e.accounts.Create(ctx, CreateAccountInput{
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
	})
	if err != nil {
		return Account{}, err
	}

	e.metrics.Inc(MetricAccountCreated)
	return account, nil
}

// Login verifies the credentials, issues a fresh token pair, and stores it as
// the account's only valid pair. Any pair from an earlier login stops
// validating the moment the store write lands. Unknown email and wrong
// password both return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, pass string) (TokenPair, Account, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, Account{}, err
	}

	account, err := e.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			return TokenPair{}, Account{}, ErrInvalidCredentials
		}
		return TokenPair{}, Account{}, err
	}

	ok, err := e.hasher.Verify(pass, account.PasswordHash)
	if err != nil {
		return TokenPair{}, Account{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		e.metrics.Inc(MetricLoginFailure)
		return TokenPair{}, Account{}, ErrInvalidCredentials
	}

	pair, err := e.issuePair(account.ID)
	if err != nil {
		return TokenPair{}, Account{}, err
	}

	// The pre-write read only feeds the eviction counter; the overwrite
	// itself needs no check.
	if _, getErr := e.sessions.Get(ctx, account.ID); getErr == nil {
		e.metrics.Inc(MetricSessionEvicted)
	}

	if err := e.sessions.Set(ctx, account.ID, pair.AccessToken, pair.RefreshToken); err != nil {
		return TokenPair{}, Account{}, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	return pair, account, nil
}

// Authenticate validates a bearer access token for one request. The token
// must verify cryptographically and must equal the account's stored access
// slot; a verified token that no longer matches the store has been revoked by
// a newer login, a refresh, or a logout and returns [ErrTokenStale].
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Account, error) {
	if err := e.ready(); err != nil {
		return Account{}, err
	}

	if accessToken == "" {
		e.metrics.Inc(MetricAuthRejected)
		return Account{}, ErrTokenMissing
	}

	claims, err := e.codec.Verify(accessToken, token.KindAccess)
	if err != nil {
		e.metrics.Inc(MetricAuthRejected)
		return Account{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	pair, err := e.sessions.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metrics.Inc(MetricAuthRejected)
			return Account{}, ErrSessionAbsent
		}
		return Account{}, err
	}
	if pair.AccessToken != accessToken {
		e.metrics.Inc(MetricAuthRejected)
		return Account{}, ErrTokenStale
	}

	account, err := e.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Account deleted after login; its session is dead weight.
			e.metrics.Inc(MetricAuthRejected)
			return Account{}, ErrTokenStale
		}
		return Account{}, err
	}

	return account, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated: the stored refresh slot keeps its value for
// its whole lifetime, so concurrent refresh calls all succeed and the last
// written access token is the live one. The swap is conditional on the
// stored refresh slot still matching, so a refresh can never resurrect a
// logged-out session or hijack a newer login's pair.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	if refreshToken == "" {
		e.metrics.Inc(MetricRefreshFailure)
		return "", ErrTokenMissing
	}

	claims, err := e.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	newAccess, err := e.codec.Issue(claims.Subject, token.KindAccess)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}

	if err := e.sessions.ReplaceAccess(ctx, claims.Subject, refreshToken, newAccess); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			e.metrics.Inc(MetricRefreshFailure)
			return "", ErrSessionAbsent
		case errors.Is(err, session.ErrRefreshMismatch):
			e.metrics.Inc(MetricRefreshFailure)
			return "", ErrTokenStale
		default:
			return "", err
		}
	}

	e.metrics.Inc(MetricRefreshSuccess)
	return newAccess, nil
}

// Logout clears the account's stored pair. Both tokens stop validating
// immediately. Logging out an account with no active session is a no-op.
func (e *Engine) Logout(ctx context.Context, accountID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrAccountInvalid)
	}

	if err := e.sessions.Clear(ctx, accountID); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogout)
	return nil
}

// MetricsSnapshot returns a copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Ping reports session store availability and round-trip latency.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	_, err := e.sessions.Ping(ctx)
	return err
}

func (e *Engine) issuePair(accountID string) (TokenPair, error) {
	access, err := e.codec.Issue(accountID, token.KindAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.codec.Issue(accountID, token.KindRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package auth

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the email is unknown or
	// the password does not match. The two cases are deliberately
	// indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned by account lookups for unknown IDs or emails.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by Register for a duplicate email.
	ErrAccountExists = errors.New("account already exists with this email")
	// ErrAccountInvalid is returned by Register when the submitted details
	// fail validation.
	ErrAccountInvalid = errors.New("invalid account details")
	// ErrTokenMissing is returned by Authenticate when no token was presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid is returned when a token fails codec verification
	// (malformed, expired, or wrong kind).
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenStale is returned when a cryptographically valid token no longer
	// equals the account's stored session value.
	ErrTokenStale = errors.New("stale session token")
	// ErrSessionAbsent is returned when the account has no active session.
	ErrSessionAbsent = errors.New("no active session")
	// ErrEngineNotReady is returned by Engine methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

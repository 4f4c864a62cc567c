// Package auth implements the session token lifecycle for the clipstream
// video platform: issuance of paired access+refresh tokens bound 1:1 to an
// account, request authentication by equality against the stored pair, and
// token refresh without credential re-checks.
//
// The package enforces a single active session per account. Validation is
// revocation-by-overwrite: a token is accepted only while it equals the value
// the session store currently holds for its subject, so a new login (or a
// logout) instantly invalidates everything issued before — no blocklist.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// auth is the public surface. Token cryptography lives in token/, Redis
// session state in session/, password hashing in password/. The HTTP surface
// (httpapi/, middleware/) and the client-side dispatcher (client/) build on
// Engine and never reach around it.
package auth

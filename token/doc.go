// Package token issues and verifies the signed, expiring bearer credentials
// that make up a session pair (one access token, one refresh token).
//
// # Kinds
//
// Access and refresh tokens share a payload shape but are signed with distinct
// secrets. A refresh token therefore fails signature verification on the
// access path and vice versa — the kind claim is a second, cheaper check on
// top of that.
//
// # Architecture boundaries
//
// This package is purely cryptographic: it never touches Redis and never
// decides whether a verified token still matches the account's stored session
// value. That comparison belongs to the Engine.
package token

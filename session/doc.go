// Package session persists, per account, the single currently-valid
// access/refresh token pair.
//
// # Revocation by overwrite
//
// There is no revocation list. A pair is valid exactly while it equals the
// stored value; writing a new pair (login) or deleting the key (logout)
// instantly invalidates everything issued before. Each account maps to one
// Redis hash, so an overwrite evicts any session the account held elsewhere.
//
// # Architecture boundaries
//
// This package owns the Redis layout and the atomic update scripts. It does
// NOT parse tokens or decide authentication outcomes — the Engine compares
// verified tokens against what this store returns.
package session

// Package account provides the Redis-backed account provider used by the
// clipstream services.
//
// Each account is one JSON record keyed by id, with a second key mapping the
// lowercased email to that id. The email key is claimed with SETNX inside the
// creation script, which is what enforces email uniqueness.
//
// # Architecture boundaries
//
// The package never sees plaintext passwords; it stores whatever hash the
// engine hands it. Session state lives elsewhere entirely.
package account

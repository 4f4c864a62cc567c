// Package middleware exposes the HTTP guard that protects authenticated
// routes.
//
// [Guard] reads the Authorization header, validates the bearer access token
// through the engine, and injects the resolved account into the request
// context for downstream handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate, and every rejection maps to the same 401 so a caller
// cannot probe why a token was refused.
package middleware

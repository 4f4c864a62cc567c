// Package httpapi serves the auth engine over HTTP.
//
// Routes:
//
//	POST /auth/register  — create an account
//	POST /auth/login     — issue a token pair
//	POST /auth/refresh   — exchange a refresh token for a new access token
//	POST /auth/logout    — revoke the caller's session (bearer)
//	GET  /auth/me        — resolve the caller's account (bearer)
//	GET  /metrics        — Prometheus text exposition of engine counters
//	GET  /healthz        — session store liveness
//
// # Architecture boundaries
//
// Handlers translate JSON bodies into engine calls and engine errors into
// statuses. No authentication decision is made here; the guard middleware and
// the engine own those.
package httpapi

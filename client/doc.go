// Package client implements the consumer side of the session token
// lifecycle.
//
// [Client.Do] attaches the access token to every outgoing request. When the
// server answers 401, the client refreshes the access token and replays the
// request once. Concurrent 401s collapse into a single refresh call; every
// blocked request waits for that one result and replays with it. A failed
// refresh clears the session and fires the OnSessionExpired hook, which is
// the application's cue to send the user back to login.
//
// # Architecture boundaries
//
// The client never inspects token contents. Tokens are opaque strings whose
// only meaning is assigned by the server.
package client

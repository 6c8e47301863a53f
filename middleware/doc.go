// Package middleware adapts the coursegate engine to net/http.
//
// # Handlers
//
//   - [Profile] names the visitor profile from the cg_profile cookie.
//   - [RequestID] tags the request for audit events.
//   - [Guard] runs the route gate and turns its redirects into 303 responses.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Route decisions are made by
// Engine.CheckRoute; the middleware only carries the visitor's profile and redirect count
// between requests in cookies.
//
// # What this package must NOT do
//
//   - Read or write credentials directly (the Engine owns the credential store).
//   - Decode admin tokens.
//   - Tell the visitor why an admin credential was refused.
package middleware

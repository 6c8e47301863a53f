// Package credential persists the two credential slots of a browsing profile: the primary
// session (bearer token plus user record) and the elevated admin session (admin token only).
//
// # Storage layout
//
// Credentials are kept under the three keys a browser would hold in local storage:
// "token", "user" (JSON) and "admin_token". A [Backend] provides raw string storage for
// those keys; [Store] layers the slot semantics on top.
//
// # Architecture boundaries
//
// This package owns the [Store], the [Backend] implementations (memory, JSON file, Redis)
// and the [User] record. It does NOT decode admin tokens or decide access; those belong
// to the admintoken and gate packages.
//
// # What this package must NOT do
//
//   - Import coursegate, gate or admintoken (no upward imports).
//   - Treat a missing key as an error. Absence is the normal logged-out state.
//   - Return a partially written primary credential.
package credential

// Package gate decides whether a visitor may open a route, given the credentials held in
// their profile.
//
// Admin-protected routes need a valid admin credential. The passkey challenge route needs a
// primary credential with the admin role. Member dashboards need a primary credential of the
// matching role. Every other route is public.
//
// # Architecture boundaries
//
// The gate reads credentials through CredentialStore and clears the admin credential when it
// finds it unusable. It re-evaluates on every call and keeps no memory of earlier decisions
// except the redirect hop count carried by the caller.
//
// The gate is advisory. It stops protected screens from rendering; the backend checks the
// token again on every API call.
//
// # What this package must NOT do
//
//   - Call the backend.
//   - Tell the visitor why a credential was rejected. Reasons are for audit only.
package gate

// Package coursegate is the client core of the course marketplace: it keeps each visitor's
// login and admin credentials, decides which routes a visitor may open, and serves the course
// catalogue from the backend REST API.
//
// Engine methods are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The visitor whose credentials are used is named in the context with
// [WithProfile].
//
// # Architecture boundaries
//
// coursegate is the public surface. It exposes [Engine], [Builder], [Config] and the audit and
// metrics value types. Credential storage, token decoding, route decisions and listing
// queries live in the credential, admintoken, gate and course packages; audit dispatch and
// the passkey attempt counter live under internal/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or credential backends in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder only dials nothing).
//   - Surface why an admin credential was refused. The reason goes to the audit log only.
//   - Import any sub-package that re-imports coursegate (no import cycles).
package coursegate

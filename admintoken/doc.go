// Package admintoken encodes and decodes the elevated admin credential.
//
// Two token shapes are understood. Local tokens are written by this package as
// base64(percent-escaped JSON payload) "." base64("admin-" + unix millis). They are opaque to
// casual tampering only; the backend remains the authority on every API call. Backend tokens
// are three-segment JWTs issued by the passkey endpoint and read through package jwt.
//
// # Architecture boundaries
//
// Decoding is pure: no clock reads, no storage, no logging. Validity against a point in time
// is decided by Payload.Valid so that every caller applies the same rule.
//
// # What this package must NOT do
//
//   - Decide routing or clear stored credentials.
//   - Treat a signature segment as proof of authenticity.
package admintoken

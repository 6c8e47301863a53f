// Package jwt reads the elevated admin tokens issued by the backend after a passkey check.
//
// By default claims are read without verifying the signature; the backend verifies the token
// on every API call it receives. When a shared secret or Ed25519 public key is configured the
// signature is checked as well.
package jwt

// Package server is the backend-for-frontend HTTP surface of a coursegate Engine.
//
// It mounts the public catalogue, the login and registration endpoints, the admin passkey
// challenge and the admin course operations on a chi router. Guarded routes pass through
// middleware.Guard, so gate redirects are answered with 303 See Other before a handler runs.
//
// # Architecture boundaries
//
// Handlers decode JSON, call one Engine method and encode the result. Errors map to a status
// and a short error code in writeEngineError; backend messages are passed through unchanged.
//
// # What this package must NOT do
//
//   - read or write credential slots directly
//   - make routing decisions the gate already makes
package server

// Package internal holds the parts of coursegate that are private to the module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window counter behind the passkey throttle
//   - settings: YAML, .env and environment loading for the binaries
//   - server: the chi HTTP surface over an Engine
//
// # What this package must NOT do
//
//   - Export types that appear in the public coursegate API.
//   - Be imported by any package outside the coursegate module.
package internal

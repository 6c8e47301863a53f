// Package settings loads process configuration for the coursegate server and CLI.
//
// Sources are applied in increasing precedence:
//
//  1. built-in defaults, mirroring coursegate.DefaultConfig
//  2. an optional YAML file
//  3. variables from a .env file, which never override the real environment
//  4. COURSEGATE_* environment variables
//
// # Architecture boundaries
//
// Settings is plain data. EngineConfig converts it into a validated coursegate.Config;
// server-only values such as the listen address and CORS origins stay here.
//
// # What this package must NOT do
//
//   - open network connections or build the engine
//   - log secrets such as the Redis password or the admin token key
package settings

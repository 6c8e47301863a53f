// Package audit delivers audit events for gate decisions, sign-ins and course changes.
//
// # Components
//
//   - [Sink] is the event consumer interface (channel, JSON lines, no-op).
//   - [Dispatcher] relays events to a sink from one goroutine through a bounded buffer.
//   - [Event] is the record: timestamp, type, profile, user, route, outcome and metadata.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events are emitted is decided by the
// Engine in the root package.
//
// # What this package must NOT do
//
//   - Filter or rewrite events.
//   - Import coursegate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit

// Package rate throttles admin passkey attempts with Redis counters.
//
// # Window semantics
//
// Fixed-window counters: INCR plus EXPIRE on the first hit. Keys are
// "<prefix>:pk:<userID>". A successful verification deletes the key.
//
// # What this package must NOT do
//
//   - Decide what happens to a throttled caller (the Engine maps ErrRateLimited).
//   - Be imported outside the coursegate module.
package rate

// Package rate implements the Redis-backed login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - acl:  — login per-identifier
//   - acli: — login per-IP
//
// # What this package must NOT do
//
//   - Decide when throttling applies (the Engine does).
//   - Be imported outside the authcore module.
package rate

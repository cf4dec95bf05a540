// Package authcore is the authentication and session-authorization core of
// the studyportal content-management application. It issues and verifies
// signed session credentials, performs password-based login, and decides per
// request whether an inbound call may proceed and under which role.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialStore] port, and value types ([Principal], [PublicUser],
// [UserRecord]). Token encoding lives in the token subpackage, hashing in
// password, HTTP guarding in middleware, and the JSON endpoints in httpapi.
// Content rendering, forms, e-mail, and search are collaborators that call
// into this package; none of their concerns may leak in.
//
// # What this package must NOT do
//
//   - Persist sessions. The session credential is self-contained; in
//     stateless mode verification performs no I/O.
//   - Return or log password hashes or plaintexts through any API, audit
//     event, or metric.
//   - Distinguish "unknown e-mail" from "wrong password" in any result
//     visible to a client.
//
// # Performance contract
//
// Authenticate is the hot path. In [ModeStateless] it must not perform
// store round-trips; [ModeStrict] is allowed exactly one credential-store
// read per check.
package authcore

// Package middleware exposes HTTP middleware adapters for cookie-based
// session authorization built on top of authcore.Engine.
//
// # Gates
//
//   - [Authenticate] — identifies the caller from the session cookie, never
//     rejects. Anonymous requests pass through without a principal.
//   - [RequireAuthenticated] — 401 for anonymous requests.
//   - [RequireRole] — 403 unless the principal holds exactly the given role.
//   - [ProtectPrefix] — blanket gate for a path prefix; browser navigations
//     are redirected to the login page, API requests get a structured 401.
//
// Each gate reads the session cookie, calls Engine.Authenticate, and injects
// the resulting principal into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access the credential store (Engine handles I/O).
//   - Reveal why a token was rejected: missing, expired, and tampered
//     cookies all produce the same anonymous outcome.
package middleware

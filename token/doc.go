// Package token encodes and decodes the signed session claim carried by the
// session cookie.
//
// Tokens are HS256 JWTs signed with a process-wide symmetric secret. A claim
// carries the subject id, e-mail, role, token version, and a fixed validity
// window. Decoding is a pure function of (token, secret, now): it performs no
// I/O and a [Codec] is safe for unbounded concurrent use.
//
// # Hardening
//
//   - The signing algorithm is pinned to HS256; alg-substitution tokens
//     (including "none") are rejected.
//   - Expiry is checked with zero leeway. There is no grace window: clients
//     holding a token past its window must re-authenticate.
//   - A claim whose role is outside the configured closed set is rejected at
//     decode time, guarding against schema drift between issuer versions.
//
// # What this package must NOT do
//
//   - Touch the credential store or any other I/O.
//   - Import any other authcore package.
package token

// Package password implements one-way password hashing and verification
// with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and cost parameters are embedded in the encoding, so verification
// never needs external configuration. When the configured parameters are
// raised, [Hasher.NeedsRehash] reports true for hashes produced under the
// old parameters and the caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length, role rules) is enforced by the Engine before a plaintext ever
// reaches the hasher.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintexts, hashes, or parameters.
package password

// Package httpapi serves the JSON authentication endpoints: login, session
// check, and logout.
//
// # Endpoints
//
//   - POST /login — verifies credentials, sets the session cookie.
//   - GET /session — reports the current principal, or user:null.
//   - POST /logout — clears the session cookie.
//
// # Error contract
//
// Failed logins always answer 401 with the literal message "Invalid email
// or password", regardless of whether the e-mail was unknown, the password
// wrong, or the account deactivated. This package is the only place that
// maps error kinds to HTTP status codes; handlers elsewhere reuse
// [StatusFor].
//
// # What this package must NOT do
//
//   - Leak which login check failed (wrong e-mail vs wrong password vs
//     inactive account).
//   - Echo password material in responses, logs, or audit metadata.
package httpapi

package authcore

import "errors"

var (
	// ErrInvalidCredentials is the uniform login failure. Wrong password,
	// unknown e-mail, and deactivated account all collapse into it so the
	// result cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized means no valid session where one is required.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means a valid session with an insufficient role.
	ErrForbidden = errors.New("forbidden")
	// ErrMisconfigured marks a server-side configuration fault (missing or
	// short signing secret, broken codec). It is a 5xx-class condition and
	// must never be reported as an authentication failure.
	ErrMisconfigured = errors.New("auth core misconfigured")
	// ErrUserNotFound is returned by credential stores for missing records.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists rejects account creation for an e-mail already in use.
	ErrAccountExists = errors.New("account already exists")
	// ErrRoleInvalid rejects a role value outside the closed set.
	ErrRoleInvalid = errors.New("invalid role")
	// ErrPasswordPolicy rejects a password below the configured minimum length.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited throttles repeated failed login attempts.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable wraps credential-store infrastructure failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// partially constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

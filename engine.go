package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyportal/authcore/internal/rate"
	"github.com/studyportal/authcore/password"
	"github.com/studyportal/authcore/token"
)

// Engine orchestrates login, session verification, and account
// administration. Construct via [Builder.Build]; all methods are safe for
// concurrent use afterwards.
type Engine struct {
	config  Config
	store   CredentialStore
	hasher  *password.Hasher
	tokens  *token.Codec
	limiter *rate.Limiter
	audit   *auditDispatcher
	metrics *Metrics
	clock   func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events shed under backpressure
// or abandoned at the shutdown drain deadline.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login runs the credential check state machine and, on success, issues a
// session token.
//
// Every credential failure — empty input, unknown e-mail, deactivated
// account, wrong password — resolves to [ErrInvalidCredentials] with no
// further detail, and unknown-account paths burn an equivalent hash
// computation so response timing does not reveal account existence.
// Codec or secret faults surface as [ErrMisconfigured], which the HTTP
// layer must report as a server error, not an authentication failure.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if email == "" || plaintext == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, map[string]string{
			"identifier": email,
			"reason":     "empty_input",
		})
		return nil, ErrInvalidCredentials
	}

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, map[string]string{
					"identifier": email,
				})
				return nil, ErrLoginRateLimited
			}
			// A down limiter backend must not deny all logins.
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", err, map[string]string{
				"identifier": email,
				"reason":     "limiter_unavailable",
			})
		}
	}

	user, err := e.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, e.rejectLogin(ctx, email, ip, "", "user_not_found", plaintext)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case !user.IsActive:
		// Indistinguishable from a wrong password, including timing.
		return nil, e.rejectLogin(ctx, email, ip, user.ID, "account_inactive", plaintext)
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		reason := "password_mismatch"
		if err != nil {
			reason = "hash_undecodable"
		}
		return nil, e.rejectLogin(ctx, email, ip, user.ID, reason, "")
	}

	if e.config.Password.RehashOnLogin {
		e.maybeRehash(ctx, user.ID, user.PasswordHash, plaintext)
	}
	plaintext = ""

	now := e.clock()
	if err := e.store.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Best-effort: audit the write failure, never fail the login.
		e.emitAudit(ctx, auditEventLastLoginWriteFailed, false, user.ID, err, nil)
	}

	if e.limiter != nil {
		_ = e.limiter.Reset(ctx, email, ip)
	}

	signed, err := e.tokens.Issue(user.ID, user.Name, user.Email, string(user.Role), user.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: token issuance: %v", ErrMisconfigured, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		Token:     signed,
		ExpiresAt: now.Add(e.tokens.TTL()),
		User:      user.Public(),
	}, nil
}

// rejectLogin is the single failure path for credential mismatches. When
// plaintext is non-empty the hasher burns a dummy verification so missing
// and present accounts cost the same.
func (e *Engine) rejectLogin(ctx context.Context, email, ip, userID, reason, plaintext string) error {
	if plaintext != "" {
		e.hasher.DummyVerify(plaintext)
	}

	if e.limiter != nil {
		if err := e.limiter.RecordFailure(ctx, email, ip); errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, ErrLoginRateLimited, map[string]string{
				"identifier": email,
			})
			return ErrLoginRateLimited
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, map[string]string{
		"identifier": email,
		"reason":     reason,
	})
	return ErrInvalidCredentials
}

func (e *Engine) maybeRehash(ctx context.Context, userID, currentHash, plaintext string) {
	needs, err := e.hasher.NeedsRehash(currentHash)
	if err != nil || !needs {
		return
	}
	upgraded, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	if _, err := e.store.SetPasswordHash(ctx, userID, upgraded); err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, userID, err, map[string]string{
			"reason": "rehash_write_failed",
		})
	}
}

// Authenticate verifies a session token and derives the request principal.
// Any failure — absent, expired, tampered, malformed, or (in strict mode)
// revoked — returns [ErrUnauthorized] with no distinguishing detail.
//
// In [ModeStateless] this is a pure function of (token, secret, now). In
// [ModeStrict] it additionally re-reads the user record and rejects tokens
// for deactivated users or stale token versions.
func (e *Engine) Authenticate(ctx context.Context, tokenStr string) (*Principal, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrUnauthorized
	}

	role := Role(claims.Role)
	if !role.Valid() {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrUnauthorized
	}
	name := claims.Name

	if e.config.ValidationMode == ModeStrict {
		user, err := e.store.GetUserByID(ctx, claims.Subject)
		if err != nil || !user.IsActive || user.TokenVersion != claims.TokenVersion {
			e.metricInc(MetricVerifyFailure)
			return nil, ErrUnauthorized
		}
		// Strict mode also picks up role and name changes immediately.
		role = user.Role
		name = user.Name
	}

	e.metricInc(MetricVerifySuccess)
	return &Principal{
		ID:    claims.Subject,
		Name:  name,
		Email: claims.Email,
		Role:  role,
	}, nil
}

// Logout records the logout event. There is no server-side session state;
// the HTTP layer clears the cookie via [Engine.ClearSessionCookie].
func (e *Engine) Logout(ctx context.Context, principal *Principal) {
	if e == nil || principal == nil {
		return
	}
	e.emitAudit(ctx, auditEventLogout, true, principal.ID, nil, nil)
}

// CreateAccount creates a user record with a freshly derived password hash.
// The password must meet the configured minimum length; the e-mail is
// normalized and must be unique; the role must be in the closed set.
func (e *Engine) CreateAccount(ctx context.Context, input CreateAccountInput) (PublicUser, error) {
	if e == nil || e.store == nil || e.hasher == nil {
		return PublicUser{}, ErrEngineNotReady
	}

	email := NormalizeEmail(input.Email)
	if email == "" {
		return PublicUser{}, fmt.Errorf("%w: empty email", ErrInvalidCredentials)
	}
	if len(input.Password) < e.config.Password.MinLength {
		return PublicUser{}, fmt.Errorf("%w: password must be at least %d characters",
			ErrPasswordPolicy, e.config.Password.MinLength)
	}
	if !input.Role.Valid() {
		return PublicUser{}, fmt.Errorf("%w: %q", ErrRoleInvalid, input.Role)
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return PublicUser{}, fmt.Errorf("%w: password hashing: %v", ErrMisconfigured, err)
	}

	user, err := e.store.CreateUser(ctx, CreateUserInput{
		Email:        email,
		Name:         input.Name,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountDuplicate)
			e.emitAudit(ctx, auditEventAccountDuplicate, false, "", err, map[string]string{
				"identifier": email,
			})
			return PublicUser{}, ErrAccountExists
		}
		return PublicUser{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, user.ID, nil, map[string]string{
		"role": string(user.Role),
	})
	return user.Public(), nil
}

// SetUserActive flips the account's active flag. Deactivation is the only
// externally visible way an account stops authenticating before token
// expiry (immediately in strict mode, on natural expiry otherwise).
func (e *Engine) SetUserActive(ctx context.Context, userID string, active bool) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	user, err := e.store.SetActive(ctx, userID, active)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !active {
		e.metricInc(MetricAccountDeactivated)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, true, user.ID, nil, map[string]string{
		"active": fmt.Sprintf("%t", active),
	})
	return nil
}

// RevokeSessions advances the user's token version. Outstanding tokens keep
// verifying in stateless mode until expiry; strict mode rejects them from
// the next check on.
func (e *Engine) RevokeSessions(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if _, err := e.store.BumpTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSessionsRevoked)
	e.emitAudit(ctx, auditEventSessionsRevoked, true, userID, nil, nil)
	return nil
}

// FailedLoginAttempts reports the failure count currently held against an
// e-mail in the rate-limit window. Zero when rate limiting is disabled, the
// window has expired, or no failures were recorded; the count does not
// reveal whether the account exists.
func (e *Engine) FailedLoginAttempts(ctx context.Context, email string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.limiter == nil {
		return 0, nil
	}

	count, err := e.limiter.Attempts(ctx, NormalizeEmail(email))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// Gate exposes the configured route-protection settings for the HTTP layer.
func (e *Engine) Gate() GateConfig {
	return e.config.Gate
}

// GateDenied records a request rejected by an HTTP gate. Called by the
// middleware package; the denial itself has already been written to the
// response by the caller.
func (e *Engine) GateDenied(ctx context.Context, path, reason string) {
	if e == nil {
		return
	}
	e.metricInc(MetricGateDenied)
	e.emitAudit(ctx, auditEventGateDenied, false, "", nil, map[string]string{
		"path":   path,
		"reason": reason,
	})
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID string, cause error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.clock(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	e.audit.Emit(ctx, event)
}

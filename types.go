package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of authorization roles. There is no hierarchy:
// admin does not implicitly satisfy an editor-only check.
type Role string

const (
	// RoleAdmin grants access to the administrative area.
	RoleAdmin Role = "admin"
	// RoleEditor grants content editing.
	RoleEditor Role = "editor"
	// RoleViewer grants read-only access to restricted content.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole maps s onto the closed role set. Unknown values are an error,
// never a fallthrough.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrRoleInvalid, s)
	}
	return r, nil
}

// AllRoles returns the closed role set in a stable order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleViewer}
}

func roleStrings() []string {
	roles := AllRoles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// NormalizeEmail lowers and trims an e-mail for storage and lookup. Both
// store adapters and the Engine apply it, so a record can never be shadowed
// by a case variant.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRecord is the persisted account record owned by a [CredentialStore].
// PasswordHash is write-only from the perspective of every other component:
// it never appears in a [PublicUser], an audit event, or an error.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	TokenVersion uint32
	LastLoginAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns the safe client-visible view of the record.
func (u UserRecord) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// PublicUser is the client-visible account view returned by login and
// session-check responses.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal is the authenticated identity derived from a verified session
// claim. It is produced fresh per request and never cached.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Is reports whether the principal holds exactly the given role.
func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}

// CreateUserInput is the input for [CredentialStore.CreateUser]. The Engine
// hands the store a finished hash; stores never see plaintext.
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
}

// CredentialStore is the persistence port for user records. Implementations
// must be safe for concurrent use and are responsible for atomic
// update-by-key semantics. Lookup by e-mail receives the already-normalized
// form.
//
// Expected sentinel errors: [ErrUserNotFound] for missing records,
// [ErrAccountExists] for duplicate e-mails on create.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, id string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)

	// UpdateLastLogin is best-effort from the Engine's point of view: a
	// failure is audited but never fails the login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// SetPasswordHash replaces the stored hash, used for transparent
	// parameter upgrades on login.
	SetPasswordHash(ctx context.Context, id, hash string) (UserRecord, error)

	// SetActive is the only path that flips IsActive. Deactivation is an
	// explicit administrative action, never a side effect of lookup or
	// authentication.
	SetActive(ctx context.Context, id string, active bool) (UserRecord, error)

	// BumpTokenVersion atomically advances the record's token version and
	// returns the new value. Outstanding tokens embedding an older version
	// fail strict-mode verification.
	BumpTokenVersion(ctx context.Context, id string) (uint32, error)
}

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	// Token is the signed session credential. The HTTP layer delivers it
	// as an HttpOnly cookie via [Engine.SessionCookie].
	Token string
	// ExpiresAt is the end of the token's validity window.
	ExpiresAt time.Time
	// User is the safe public view of the authenticated account.
	User PublicUser
}

// CreateAccountInput is the input for [Engine.CreateAccount].
type CreateAccountInput struct {
	Email    string
	Name     string
	Password string
	Role     Role
}

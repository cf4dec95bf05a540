package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 32

// DefaultTTL is the session validity window applied when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned by [Codec.Parse] for any token that fails
// verification: bad signature, malformed structure, expiry, or a claim
// outside the closed role set. Callers must not distinguish these cases to
// a client.
var ErrInvalidToken = errors.New("invalid session token")

// Config configures a [Codec]. Secret is the symmetric signing secret and
// must be at least 32 bytes; AllowedRoles is the closed set accepted at
// decode time.
type Config struct {
	Secret       []byte
	TTL          time.Duration
	Issuer       string
	AllowedRoles []string

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

// Claims is the session claim embedded in a signed token. Subject carries
// the user id.
type Claims struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion uint32 `json:"tv,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session claims. Immutable after construction.
type Codec struct {
	config Config
	roles  map[string]struct{}
	clock  func() time.Time
}

// New validates cfg and returns a [Codec]. A short secret or an empty role
// set is a construction error: the service must refuse to start rather than
// issue weak tokens.
func New(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if len(cfg.AllowedRoles) == 0 {
		return nil, errors.New("allowed role set must not be empty")
	}

	roles := make(map[string]struct{}, len(cfg.AllowedRoles))
	for _, role := range cfg.AllowedRoles {
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, errors.New("allowed role set contains empty role")
		}
		roles[role] = struct{}{}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Codec{config: cfg, roles: roles, clock: clock}, nil
}

// TTL returns the validity window applied to issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.config.TTL
}

// Issue signs a session claim for the given subject. The validity window is
// [now, now+TTL].
func (c *Codec) Issue(subjectID, name, email, role string, tokenVersion uint32) (string, error) {
	if subjectID == "" {
		return "", errors.New("empty subject id")
	}
	if _, ok := c.roles[role]; !ok {
		return "", fmt.Errorf("role %q is not in the allowed set", role)
	}

	now := c.clock()
	claims := Claims{
		Name:         name,
		Email:        email,
		Role:         role,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// Parse verifies the signature and validity window of tokenStr and returns
// the embedded claim. Every failure mode collapses into [ErrInvalidToken].
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.clock),
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(
		tokenStr,
		&Claims{},
		func(t *jwt.Token) (interface{}, error) {
			return c.config.Secret, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if _, ok := c.roles[claims.Role]; !ok {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

package authcore

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/studyportal/authcore/token"
)

// ValidationMode selects how much state a session check consults.
type ValidationMode int

const (
	// ModeStateless trusts the token's embedded claims for the token's
	// lifetime. Verification performs no I/O. Deactivating a user or
	// changing their role takes effect only when the token expires — this
	// is the source design's documented trade-off.
	ModeStateless ValidationMode = iota
	// ModeStrict re-reads IsActive and TokenVersion from the credential
	// store on every check, at the cost of one store read per request.
	ModeStrict
)

// Config is the root configuration consumed by [Builder.Build]. Configure
// once at startup and treat as immutable afterwards.
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	Cookie    CookieConfig
	Gate      GateConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig

	ValidationMode ValidationMode
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the session-token codec. Secret is a deployment
// secret: it must come from the environment, never from source.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries Argon2id cost parameters plus the Engine-enforced
// password policy.
type PasswordConfig struct {
	Memory        uint32 // in KB
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	MinLength     int
	RehashOnLogin bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes how the session token is delivered to clients.
// Secure should be true in production; development over plain HTTP keeps it
// false so browsers accept the cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig configures the blanket route-protection layer. Requests whose
// path falls under ProtectedPrefix must authenticate or are redirected to
// LoginPath; all other paths pass through unconditionally.
type GateConfig struct {
	ProtectedPrefix string
	LoginPath       string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the Redis-backed login throttle. Ignored when
// the engine is built without a Redis client.
type RateLimitConfig struct {
	Enabled          bool
	MaxLoginAttempts int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events under backpressure instead of blocking the
	// login path. Dropped counts are observable via [Engine.AuditDropped].
	DropIfFull bool
	// DrainTimeout bounds the flush of queued events at Close. Events still
	// queued at the deadline count as dropped. Zero means 5s.
	DrainTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the lock-free counter metrics.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns production-oriented defaults. The signing secret is
// intentionally absent; [Config.Validate] fails until one is supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    token.DefaultTTL,
			Issuer: "studyportal",
		},
		Password: PasswordConfig{
			Memory:        64 * 1024,
			Time:          3,
			Parallelism:   2,
			SaltLength:    16,
			KeyLength:     32,
			MinLength:     8,
			RehashOnLogin: true,
		},
		Cookie: CookieConfig{
			Name:     "auth_token",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		Gate: GateConfig{
			ProtectedPrefix: "/admin",
			LoginPath:       "/login",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			MaxLoginAttempts: 10,
			Cooldown:         15 * time.Minute,
			EnableIPThrottle: true,
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   256,
			DropIfFull:   true,
			DrainTimeout: 5 * time.Second,
		},
		Metrics:        MetricsConfig{Enabled: true},
		ValidationMode: ModeStateless,
	}
}

// Validate checks the configuration for faults that must prevent the
// service from serving traffic. All failures wrap [ErrMisconfigured].
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("%w: signing secret must be at least 32 bytes", ErrMisconfigured)
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("%w: token TTL must be positive", ErrMisconfigured)
	}
	if c.Cookie.Name == "" {
		return fmt.Errorf("%w: cookie name must not be empty", ErrMisconfigured)
	}
	if c.Password.MinLength < 8 {
		return fmt.Errorf("%w: password minimum length must be at least 8", ErrMisconfigured)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLoginAttempts <= 0 {
			return fmt.Errorf("%w: rate limit max attempts must be positive", ErrMisconfigured)
		}
		if c.RateLimit.Cooldown <= 0 {
			return fmt.Errorf("%w: rate limit cooldown must be positive", ErrMisconfigured)
		}
	}
	switch c.ValidationMode {
	case ModeStateless, ModeStrict:
	default:
		return fmt.Errorf("%w: unknown validation mode", ErrMisconfigured)
	}
	return nil
}

// Environment variables read by [ConfigFromEnv].
const (
	EnvSecret       = "AUTHCORE_SECRET"
	EnvEnvironment  = "AUTHCORE_ENV"
	EnvCookieDomain = "AUTHCORE_COOKIE_DOMAIN"
)

// ConfigFromEnv builds a Config from [DefaultConfig] plus the deployment
// environment: AUTHCORE_SECRET (required), AUTHCORE_ENV ("production"
// keeps Secure cookies on, anything else turns them off for plain-HTTP
// development), and AUTHCORE_COOKIE_DOMAIN (optional).
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	secret := os.Getenv(EnvSecret)
	if secret == "" {
		return Config{}, fmt.Errorf("%w: %s is not set", ErrMisconfigured, EnvSecret)
	}
	cfg.Token.Secret = []byte(secret)

	env := strings.ToLower(strings.TrimSpace(os.Getenv(EnvEnvironment)))
	cfg.Cookie.Secure = env == "production"

	if domain := os.Getenv(EnvCookieDomain); domain != "" {
		cfg.Cookie.Domain = domain
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Token.Secret != nil {
		out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	}
	return out
}

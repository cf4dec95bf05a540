package authcore

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/studyportal/authcore/internal/rate"
	"github.com/studyportal/authcore/password"
	"github.com/studyportal/authcore/token"
)

// Builder assembles an [Engine]. A credential store and a valid signing
// secret are mandatory; Redis is optional and enables login throttling.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     CredentialStore
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the token signing secret on the current configuration.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Token.Secret = append([]byte(nil), secret...)
	return b
}

// WithStore sets the credential store.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithRedis supplies the Redis client backing the login throttle. Without
// it the engine runs unthrottled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit event destination.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counter metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithValidationMode overrides the session validation mode.
func (b *Builder) WithValidationMode(mode ValidationMode) *Builder {
	b.config.ValidationMode = mode
	return b
}

// WithClock overrides the engine time source. Test-oriented.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration and wires the engine. Configuration
// faults wrap [ErrMisconfigured]: a misconfigured secret must stop the
// service at startup, not fail per-request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already used", ErrMisconfigured)
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, fmt.Errorf("%w: credential store required", ErrMisconfigured)
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	codec, err := token.New(token.Config{
		Secret:       cfg.Token.Secret,
		TTL:          cfg.Token.TTL,
		Issuer:       cfg.Token.Issuer,
		AllowedRoles: roleStrings(),
		Clock:        clock,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled && b.redis != nil {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
			MaxAttempts:      cfg.RateLimit.MaxLoginAttempts,
			Cooldown:         cfg.RateLimit.Cooldown,
		})
	}

	b.built = true

	return &Engine{
		config:  cfg,
		store:   b.store,
		hasher:  hasher,
		tokens:  codec,
		limiter: limiter,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		clock:   clock,
	}, nil
}

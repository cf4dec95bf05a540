package authcore

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.Token.Secret = nil }},
		{"short secret", func(c *Config) { c.Token.Secret = []byte("too short") }},
		{"zero ttl", func(c *Config) { c.Token.TTL = 0 }},
		{"negative ttl", func(c *Config) { c.Token.TTL = -time.Hour }},
		{"empty cookie name", func(c *Config) { c.Cookie.Name = "" }},
		{"weak password minimum", func(c *Config) { c.Password.MinLength = 4 }},
		{"rate limit without budget", func(c *Config) { c.RateLimit.MaxLoginAttempts = 0 }},
		{"rate limit without cooldown", func(c *Config) { c.RateLimit.Cooldown = 0 }},
		{"unknown validation mode", func(c *Config) { c.ValidationMode = ValidationMode(99) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fastTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrMisconfigured) {
				t.Fatalf("expected ErrMisconfigured, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsDefaultsWithSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestRateLimitParamsIgnoredWhenDisabled(t *testing.T) {
	cfg := fastTestConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.MaxLoginAttempts = 0
	cfg.RateLimit.Cooldown = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled rate limiting must not be validated, got %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("missing secret fails", func(t *testing.T) {
		t.Setenv(EnvSecret, "")
		if _, err := ConfigFromEnv(); !errors.Is(err, ErrMisconfigured) {
			t.Fatalf("expected ErrMisconfigured, got %v", err)
		}
	})

	t.Run("short secret fails", func(t *testing.T) {
		t.Setenv(EnvSecret, "too short")
		if _, err := ConfigFromEnv(); !errors.Is(err, ErrMisconfigured) {
			t.Fatalf("expected ErrMisconfigured, got %v", err)
		}
	})

	t.Run("production keeps secure cookies", func(t *testing.T) {
		t.Setenv(EnvSecret, string(testSecret))
		t.Setenv(EnvEnvironment, "production")
		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("ConfigFromEnv failed: %v", err)
		}
		if !cfg.Cookie.Secure {
			t.Fatal("expected Secure cookies in production")
		}
	})

	t.Run("development disables secure cookies", func(t *testing.T) {
		t.Setenv(EnvSecret, string(testSecret))
		t.Setenv(EnvEnvironment, "development")
		t.Setenv(EnvCookieDomain, "cms.example.org")
		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("ConfigFromEnv failed: %v", err)
		}
		if cfg.Cookie.Secure {
			t.Fatal("expected plain-HTTP cookies outside production")
		}
		if cfg.Cookie.Domain != "cms.example.org" {
			t.Fatalf("cookie domain = %q", cfg.Cookie.Domain)
		}
	})
}

func TestBuilderRequiresSecretAndStore(t *testing.T) {
	if _, err := New().WithStore(newMockStore()).Build(); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured without a secret, got %v", err)
	}

	if _, err := New().WithSecret(testSecret).Build(); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured without a store, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	builder := New().WithConfig(fastTestConfig()).WithStore(newMockStore())
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderCopiesSecret(t *testing.T) {
	secret := append([]byte(nil), testSecret...)
	engine, err := New().
		WithConfig(fastTestConfig()).
		WithSecret(secret).
		WithStore(newMockStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	// Mutating the caller's slice must not reach the engine.
	for i := range secret {
		secret[i] = 0
	}
	if string(engine.config.Token.Secret) == string(secret) {
		t.Fatal("engine shares the caller's secret slice")
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	cfg := fastTestConfig()
	cfg.Cookie.Secure = true
	cfg.Cookie.Domain = "cms.example.org"
	engine := newLoginEngine(t, cfg, newMockStore())

	cookie := engine.SessionCookie("token-value")
	if cookie.Name != "auth_token" || cookie.Value != "token-value" {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie flags %+v", cookie)
	}
	if cookie.Path != "/" || cookie.Domain != "cms.example.org" {
		t.Fatalf("unexpected cookie scope %+v", cookie)
	}
	if want := int(7 * 24 * time.Hour / time.Second); cookie.MaxAge != want {
		t.Fatalf("MaxAge = %d, want %d", cookie.MaxAge, want)
	}

	cleared := engine.ClearSessionCookie()
	if cleared.Value != "" || cleared.MaxAge != -1 {
		t.Fatalf("unexpected clearing cookie %+v", cleared)
	}
	if !cleared.HttpOnly {
		t.Fatal("clearing cookie must stay HttpOnly")
	}
}

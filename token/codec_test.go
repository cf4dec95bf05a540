package token

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testConfig() Config {
	return Config{
		Secret:       testSecret,
		TTL:          DefaultTTL,
		Issuer:       "authcore-test",
		AllowedRoles: []string{"admin", "editor", "viewer"},
	}
}

func newTestCodec(t *testing.T, mutate func(*Config)) *Codec {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return c
}

func TestIssueParseRoundTrip(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, func(cfg *Config) {
		cfg.Clock = func() time.Time { return issued }
	})

	tok, err := c.Issue("user-1", "Ada Admin", "a@x.com", "admin", 3)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := c.Parse(tok)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Name != "Ada Admin" {
		t.Fatalf("name = %q, want Ada Admin", claims.Name)
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("email = %q, want a@x.com", claims.Email)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %q, want admin", claims.Role)
	}
	if claims.TokenVersion != 3 {
		t.Fatalf("token version = %d, want 3", claims.TokenVersion)
	}
	if !claims.IssuedAt.Time.Equal(issued) {
		t.Fatalf("iat = %v, want %v", claims.IssuedAt.Time, issued)
	}
	if !claims.ExpiresAt.Time.Equal(issued.Add(DefaultTTL)) {
		t.Fatalf("exp = %v, want %v", claims.ExpiresAt.Time, issued.Add(DefaultTTL))
	}
}

func TestExpiryWindow(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued

	c := newTestCodec(t, func(cfg *Config) {
		cfg.Clock = func() time.Time { return now }
	})

	tok, err := c.Issue("user-1", "Ada Admin", "a@x.com", "editor", 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Valid right up to one second before expiry.
	now = issued.Add(DefaultTTL - time.Second)
	if _, err := c.Parse(tok); err != nil {
		t.Fatalf("Parse just before expiry: %v", err)
	}

	// No grace window past expiry.
	now = issued.Add(DefaultTTL + time.Second)
	_, err = c.Parse(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

// TestTamperedTokenRejected flips characters across the token and expects
// every mutation to fail verification. Segment-final characters are skipped:
// their trailing base64 bits are not covered by the decoded bytes.
func TestTamperedTokenRejected(t *testing.T) {
	c := newTestCodec(t, nil)

	tok, err := c.Issue("user-1", "Ada Admin", "a@x.com", "viewer", 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	segmentFinal := make(map[int]bool)
	last := len(tok) - 1
	for i, ch := range tok {
		if ch == '.' {
			segmentFinal[i-1] = true
		}
	}
	segmentFinal[last] = true

	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' || segmentFinal[i] {
			continue
		}

		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		tampered := tok[:i] + string(replacement) + tok[i+1:]

		if _, err := c.Parse(tampered); err == nil {
			t.Fatalf("tampered token accepted (position %d)", i)
		}
	}
}

func TestWrongSecretRejected(t *testing.T) {
	issuer := newTestCodec(t, nil)
	verifier := newTestCodec(t, func(cfg *Config) {
		cfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	})

	tok, err := issuer.Issue("user-1", "Ada Admin", "a@x.com", "admin", 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := verifier.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestUnknownRoleRejectedAtDecode(t *testing.T) {
	c := newTestCodec(t, nil)

	// Simulate schema drift: a newer issuer signs a role this verifier does
	// not know, using the same secret.
	drifted := newTestCodec(t, func(cfg *Config) {
		cfg.AllowedRoles = []string{"admin", "editor", "viewer", "superuser"}
	})

	tok, err := drifted.Issue("user-1", "Ada Admin", "a@x.com", "superuser", 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := c.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown role, got %v", err)
	}
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	c := newTestCodec(t, nil)

	if _, err := c.Issue("user-1", "Ada Admin", "a@x.com", "superuser", 1); err == nil {
		t.Fatal("expected Issue to reject a role outside the closed set")
	}
}

func TestAlgorithmConfusionRejected(t *testing.T) {
	c := newTestCodec(t, nil)

	// Unsigned token claiming alg "none".
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "authcore-test",
		},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	if _, err := c.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestMissingExpiryRejected(t *testing.T) {
	c := newTestCodec(t, nil)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "user-1",
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   "authcore-test",
		},
	})
	tok, err := noExp.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := c.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing exp, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := New(Config{Secret: []byte("short"), AllowedRoles: []string{"admin"}}); err == nil {
		t.Fatal("expected error for short secret")
	}
	if _, err := New(Config{Secret: testSecret}); err == nil {
		t.Fatal("expected error for empty role set")
	}
	if _, err := New(Config{Secret: testSecret, AllowedRoles: []string{"  "}}); err == nil {
		t.Fatal("expected error for blank role")
	}
	if _, err := New(Config{Secret: testSecret, AllowedRoles: []string{"admin"}, TTL: -time.Hour}); err == nil {
		t.Fatal("expected error for negative TTL")
	}
}

func TestParseConcurrent(t *testing.T) {
	c := newTestCodec(t, nil)

	tok, err := c.Issue("user-1", "Ada Admin", "a@x.com", "admin", 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := c.Parse(tok); err != nil {
					t.Errorf("concurrent Parse error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestParseGarbage(t *testing.T) {
	c := newTestCodec(t, nil)

	for _, garbage := range []string{"", ".", "..", "not.a.jwt", strings.Repeat("x", 4096)} {
		if _, err := c.Parse(garbage); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", garbage, err)
		}
	}
}

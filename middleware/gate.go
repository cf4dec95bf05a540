package middleware

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	authcore "github.com/studyportal/authcore"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal injected by one
// of the gates, or false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (*authcore.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*authcore.Principal)
	return principal, ok
}

// Authenticate identifies the caller from the session cookie and injects the
// principal into the request context. It never rejects: a missing, expired,
// or tampered cookie simply leaves the request anonymous. Pair with
// [RequireAuthenticated] or [RequireRole] where access must be enforced.
func Authenticate(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestContext(r)
			if principal, err := resolve(engine, ctx, r); err == nil {
				ctx = context.WithValue(ctx, principalContextKey{}, principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects anonymous requests with 401. The response
// body never distinguishes between a missing cookie and an invalid token.
func RequireAuthenticated(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestContext(r)
			principal, err := resolve(engine, ctx, r)
			if err != nil {
				engine.GateDenied(ctx, r.URL.Path, "unauthenticated")
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx = context.WithValue(ctx, principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects anonymous requests with 401 and authenticated
// requests whose role is not exactly the given one with 403. There is no
// role hierarchy: an admin is denied on an editor-gated route.
func RequireRole(engine *authcore.Engine, role authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestContext(r)
			principal, err := resolve(engine, ctx, r)
			if err != nil {
				engine.GateDenied(ctx, r.URL.Path, "unauthenticated")
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !principal.Is(role) {
				engine.GateDenied(ctx, r.URL.Path, "role_mismatch")
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			ctx = context.WithValue(ctx, principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProtectPrefix gates every request whose path falls under the configured
// protected prefix. Unauthenticated browser navigations are redirected to
// the login page with the original path in the "next" query parameter; API
// requests get a structured 401. Paths outside the prefix pass through
// untouched, though an authenticated principal is still injected when the
// cookie verifies.
func ProtectPrefix(engine *authcore.Engine) func(http.Handler) http.Handler {
	gate := engine.Gate()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestContext(r)
			principal, err := resolve(engine, ctx, r)
			if err == nil {
				ctx = context.WithValue(ctx, principalContextKey{}, principal)
			}

			if err != nil && underPrefix(r.URL.Path, gate.ProtectedPrefix) {
				engine.GateDenied(ctx, r.URL.Path, "unauthenticated")
				if isNavigation(r) {
					target := gate.LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
					http.Redirect(w, r, target, http.StatusSeeOther)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(engine *authcore.Engine, ctx context.Context, r *http.Request) (*authcore.Principal, error) {
	if engine == nil {
		return nil, authcore.ErrEngineNotReady
	}

	cookie, err := r.Cookie(engine.CookieName())
	if err != nil {
		return nil, authcore.ErrUnauthorized
	}
	return engine.Authenticate(ctx, cookie.Value)
}

// requestContext attaches the caller's IP and User-Agent so audit events
// emitted downstream carry them.
func requestContext(r *http.Request) context.Context {
	ctx := authcore.WithUserAgent(r.Context(), r.UserAgent())
	if ip := clientIP(r); ip != "" {
		ctx = authcore.WithClientIP(ctx, ip)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isNavigation reports whether the request looks like a browser navigation
// rather than an API call. Sec-Fetch-Mode is authoritative when present;
// otherwise an Accept header preferring HTML counts.
func isNavigation(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func underPrefix(path, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return false
	}
	// "/admin" must not match "/administrator".
	return len(path) == len(prefix) || path[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}

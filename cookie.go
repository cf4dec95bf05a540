package authcore

import (
	"net/http"
	"time"
)

// SessionCookie builds the HTTP cookie delivering the session token.
// HttpOnly is always on; Secure and SameSite follow the cookie config.
// Max-Age matches the token's validity window, so browser and token expire
// together.
func (e *Engine) SessionCookie(token string) *http.Cookie {
	return e.cookie(token, int(e.tokens.TTL()/time.Second))
}

// ClearSessionCookie builds the expired cookie sent on logout. There is no
// server-side session state to invalidate: clearing the cookie is the whole
// logout.
func (e *Engine) ClearSessionCookie() *http.Cookie {
	return e.cookie("", -1)
}

func (e *Engine) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	}
}

// CookieName exposes the configured session cookie name for the HTTP layer.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

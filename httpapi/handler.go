package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	authcore "github.com/studyportal/authcore"
	"github.com/studyportal/authcore/middleware"
)

// Server exposes the authentication endpoints over net/http.
type Server struct {
	engine *authcore.Engine
}

func New(engine *authcore.Engine) *Server {
	return &Server{engine: engine}
}

// Register mounts the endpoints on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("POST /logout", s.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Success bool                 `json:"success"`
	User    *authcore.PublicUser `json:"user,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type sessionResponse struct {
	User *sessionUser `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Error: "Malformed request body"})
		return
	}

	result, err := s.engine.Login(requestContext(r), req.Email, req.Password)
	if err != nil {
		writeJSON(w, StatusFor(err), loginResponse{Error: Message(err)})
		return
	}

	http.SetCookie(w, s.engine.SessionCookie(result.Token))
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: &result.User})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(r)
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{User: nil})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: &sessionUser{
		ID:    principal.ID,
		Name:  principal.Name,
		Email: principal.Email,
		Role:  string(principal.Role),
	}})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := s.principal(r); ok {
		s.engine.Logout(requestContext(r), principal)
	}
	http.SetCookie(w, s.engine.ClearSessionCookie())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// principal resolves the caller, preferring an identity injected by an
// upstream middleware gate over re-reading the cookie.
func (s *Server) principal(r *http.Request) (*authcore.Principal, bool) {
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		return principal, true
	}

	cookie, err := r.Cookie(s.engine.CookieName())
	if err != nil {
		return nil, false
	}
	principal, err := s.engine.Authenticate(requestContext(r), cookie.Value)
	if err != nil {
		return nil, false
	}
	return principal, true
}

// StatusFor maps the error taxonomy to HTTP status codes. This is the only
// place in the module that performs this mapping.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, authcore.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, authcore.ErrPasswordPolicy), errors.Is(err, authcore.ErrRoleInvalid):
		return http.StatusBadRequest
	case errors.Is(err, authcore.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		// ErrMisconfigured and anything unclassified.
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for an error. Credential failures
// use one fixed string so responses cannot be used as an enumeration
// oracle.
func Message(err error) string {
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return "Too many login attempts, try again later"
	case errors.Is(err, authcore.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, authcore.ErrForbidden):
		return "Forbidden"
	case errors.Is(err, authcore.ErrAccountExists):
		return "Account already exists"
	case errors.Is(err, authcore.ErrPasswordPolicy):
		return err.Error()
	default:
		return "Internal server error"
	}
}

// requestContext attaches the caller's IP and User-Agent for audit events.
func requestContext(r *http.Request) context.Context {
	ctx := authcore.WithUserAgent(r.Context(), r.UserAgent())
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		ctx = authcore.WithClientIP(ctx, host)
	} else if r.RemoteAddr != "" {
		ctx = authcore.WithClientIP(ctx, r.RemoteAddr)
	}
	return ctx
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

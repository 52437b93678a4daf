// Package middleware contains HTTP middleware for the proforma application.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/proforma/internal/auth"
	"github.com/DukeRupert/proforma/internal/handler"
	"github.com/DukeRupert/proforma/internal/session"
)

// SessionLookup resolves a session cookie value. service.AuthService
// satisfies it.
type SessionLookup interface {
	Session(ctx context.Context, token string) (*session.Session, bool)
}

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware attaches the caller's session to requests and guards the
// routes that need one.
type AuthMiddleware struct {
	sessions SessionLookup
	logger   *slog.Logger
	isSecure bool // Whether to set Secure flag on cookies (true in production)
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(sessions SessionLookup, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger,
		isSecure: isSecure,
	}
}

// =============================================================================
// WithSession Middleware
// =============================================================================

// WithSession loads the session named by the cookie into the request
// context, clearing stale cookies. It always calls the next handler.
func (m *AuthMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := m.sessions.Session(r.Context(), cookie.Value)
		if !ok {
			session.ClearCookie(w, m.isSecure)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetSession(r.Context(), sess)))
	})
}

// =============================================================================
// RequireSession Middleware
// =============================================================================

// RequireSession rejects requests without a session: API requests get a
// 401, page requests are redirected to /login with a return_to parameter.
//
// Must run after WithSession.
func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetSession(r.Context()) == nil {
			if isAPIRequest(r) {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}

			returnTo := r.URL.Path
			if r.URL.RawQuery != "" {
				returnTo += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, "/login?return_to="+url.QueryEscape(returnTo), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Request Helpers
// =============================================================================

// isAPIRequest determines if the request expects a JSON response.
func isAPIRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(authMw.WithSession, authMw.RequireSession)
//	mux.Handle("GET /", stack(quoteHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithSession
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireSession
)

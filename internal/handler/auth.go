// Package handler contains HTTP handlers for the proforma application.
//
// This file implements the login and logout handlers.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/proforma/internal/auth"
	"github.com/DukeRupert/proforma/internal/csrf"
	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/service"
	"github.com/DukeRupert/proforma/internal/session"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// TemplateRenderer is the interface for rendering HTML templates.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{})
}

// LoginLimiter forgets an address's login attempts once it signs in.
// middleware.Limiters satisfies it.
type LoginLimiter interface {
	ResetLogin(r *http.Request)
}

// AuthHandler handles authentication-related HTTP requests.
//
// Routes handled:
// - GET  /login  -> ShowLogin
// - POST /login  -> Login
// - POST /logout -> Logout
type AuthHandler struct {
	authService  service.AuthService
	limiter      LoginLimiter
	renderer     TemplateRenderer
	businessName string
	sessionTTL   time.Duration
	logger       *slog.Logger
	isSecure     bool
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
func NewAuthHandler(
	authService service.AuthService,
	limiter LoginLimiter,
	renderer TemplateRenderer,
	businessName string,
	sessionTTL time.Duration,
	logger *slog.Logger,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		limiter:      limiter,
		renderer:     renderer,
		businessName: businessName,
		sessionTTL:   sessionTTL,
		logger:       logger,
		isSecure:     isSecure,
	}
}

// =============================================================================
// Template Data Types
// =============================================================================

// Flash represents a flash message to display to the user.
//
// The Type field determines styling in templates:
// - "success" -> green background
// - "error"   -> red background
// - "info"    -> blue background
type Flash struct {
	Type    string // "success", "error", or "info"
	Message string
}

// AuthPageData contains the data for the login page.
type AuthPageData struct {
	CurrentPath  string
	BusinessName string
	CSRFToken    string
	Form         map[string]string // Form field values for re-populating on error
	Errors       map[string]string // Field-level validation errors
	Flash        *Flash
	ReturnTo     string // URL to redirect to after successful login
}

// =============================================================================
// GET /login - Show Login Form
// =============================================================================

// ShowLogin renders the login form. Signed-in users go straight to the quote.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if auth.GetSession(r.Context()) != nil {
		http.Redirect(w, r, safeReturnTo(r.URL.Query().Get("return_to")), http.StatusSeeOther)
		return
	}

	var flash *Flash
	if r.URL.Query().Get("signed_out") == "1" {
		flash = &Flash{Type: "info", Message: "You have been signed out."}
	}

	h.renderer.RenderHTTP(w, "auth/login", h.pageData(r, flash, nil, nil))
}

// =============================================================================
// POST /login - Process Login
// =============================================================================

// Login checks the submitted credential and starts a session.
//
// On success the session cookie is set and the browser is redirected to
// return_to (when it is a local path) or the quote page. On failure the form
// is re-rendered with the username kept and the password cleared.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse login form", "error", err)
		h.renderer.RenderHTTPStatus(w, http.StatusBadRequest, "auth/login",
			h.pageData(r, &Flash{Type: "error", Message: "Invalid form submission."}, nil, nil))
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	form := map[string]string{"username": username}

	token, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		status := ErrorCodeToHTTPStatus(domain.ErrorCode(err))
		if status >= http.StatusInternalServerError {
			h.logger.Error("login failed", "error", err)
		}
		h.renderer.RenderHTTPStatus(w, status, "auth/login",
			h.pageData(r, &Flash{Type: "error", Message: domain.ErrorMessage(err)}, form, fieldErrors(err)))
		return
	}

	h.limiter.ResetLogin(r)
	session.SetCookie(w, token, h.sessionTTL, h.isSecure)
	http.Redirect(w, r, safeReturnTo(r.FormValue("return_to")), http.StatusSeeOther)
}

// =============================================================================
// POST /logout - Process Logout
// =============================================================================

// Logout ends the session, discarding its quote, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		h.authService.Logout(r.Context(), cookie.Value)
	}
	session.ClearCookie(w, h.isSecure)

	http.Redirect(w, r, "/login?signed_out=1", http.StatusSeeOther)
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the public auth routes. limitLogin wraps the
// login POST so repeated attempts are throttled.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, withSession, limitLogin func(http.Handler) http.Handler) {
	mux.Handle("GET /login", withSession(http.HandlerFunc(h.ShowLogin)))
	mux.Handle("POST /login", limitLogin(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *AuthHandler) pageData(r *http.Request, flash *Flash, form, errs map[string]string) AuthPageData {
	returnTo := r.URL.Query().Get("return_to")
	if r.Method == http.MethodPost {
		returnTo = r.FormValue("return_to")
	}
	return AuthPageData{
		CurrentPath:  r.URL.Path,
		BusinessName: h.businessName,
		CSRFToken:    csrf.Token(r.Context()),
		Form:         form,
		Errors:       errs,
		Flash:        flash,
		ReturnTo:     returnTo,
	}
}

// safeReturnTo accepts only local absolute paths, so a crafted link cannot
// bounce the user to another site after login.
func safeReturnTo(returnTo string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.HasPrefix(returnTo, "/\\") {
		return "/"
	}
	u, err := url.Parse(returnTo)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return returnTo
}

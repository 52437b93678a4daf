// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// A random token is set in a cookie and echoed back by every unsafe request,
// either as the csrf_token form field or in the X-CSRF-Token header. A
// cross-origin page can make the browser send the cookie but cannot read it,
// so it cannot supply the matching value.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "proforma_csrf"

	// FormFieldName is the name of the CSRF token form field.
	FormFieldName = "csrf_token"

	// HeaderName carries the token on JSON requests.
	HeaderName = "X-CSRF-Token"

	// TokenLength is the number of random bytes for the token (32 bytes = 256 bits).
	TokenLength = 32

	// CookieMaxAge matches the default session lifetime (12 hours).
	CookieMaxAge = 12 * 60 * 60

	// DefaultMaxFormBytes bounds the body parsed while looking for the token.
	DefaultMaxFormBytes = 10 << 20
)

// =============================================================================
// Token Generation and Validation
// =============================================================================

// GenerateToken returns 32 random bytes, base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the cookie token with the submitted token in
// constant time.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// =============================================================================
// Context
// =============================================================================

type contextKey struct{}

// Token returns the token for the current request, for rendering into
// forms. Empty outside Protect.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}

// =============================================================================
// Middleware
// =============================================================================

// Protector issues tokens and rejects unsafe requests that do not echo them.
type Protector struct {
	isSecure     bool
	maxFormBytes int64
	logger       *slog.Logger
}

// NewProtector creates a Protector. maxFormBytes limits how much of a form
// body is read while looking for the token; 0 uses DefaultMaxFormBytes.
func NewProtector(isSecure bool, maxFormBytes int64, logger *slog.Logger) *Protector {
	if maxFormBytes <= 0 {
		maxFormBytes = DefaultMaxFormBytes
	}
	return &Protector{
		isSecure:     isSecure,
		maxFormBytes: maxFormBytes,
		logger:       logger,
	}
}

// Protect ensures every request carries a token cookie and validates the
// token on POST, PUT, PATCH and DELETE.
func (p *Protector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieToken := ""
		if c, err := r.Cookie(CookieName); err == nil {
			cookieToken = c.Value
		}

		if isSafeMethod(r.Method) {
			token := cookieToken
			if token == "" {
				var err error
				token, err = GenerateToken()
				if err != nil {
					p.logger.Error("failed to generate csrf token", "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				p.setCookie(w, token)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, token)))
			return
		}

		submitted, err := p.submitted(w, r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Request body is too large.", http.StatusRequestEntityTooLarge)
				return
			}
			p.logger.Debug("failed to parse form for csrf token", "error", err)
		}

		if !ValidateToken(cookieToken, submitted) {
			p.logger.Warn("csrf token mismatch",
				"method", r.Method,
				"path", r.URL.Path,
			)
			http.Error(w, "Invalid or missing CSRF token. Please reload the page and try again.", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, cookieToken)))
	})
}

// submitted reads the token from the header, falling back to the form.
func (p *Protector) submitted(w http.ResponseWriter, r *http.Request) (string, error) {
	if token := r.Header.Get(HeaderName); token != "" {
		return token, nil
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, p.maxFormBytes)
		if err := r.ParseMultipartForm(p.maxFormBytes); err != nil {
			return "", err
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		r.Body = http.MaxBytesReader(w, r.Body, p.maxFormBytes)
		if err := r.ParseForm(); err != nil {
			return "", err
		}
	default:
		return "", nil
	}
	return r.PostFormValue(FormFieldName), nil
}

func (p *Protector) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false, // the page script echoes it in X-CSRF-Token
		Secure:   p.isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

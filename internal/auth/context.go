// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/proforma/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const sessionContextKey contextKey = "session"

// GetSession retrieves the authenticated session from the context.
//
// Returns nil if no session is attached.
func GetSession(ctx context.Context) *session.Session {
	sess, ok := ctx.Value(sessionContextKey).(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetWorkspace returns the quote workspace of the request's session, or nil.
func GetWorkspace(r *http.Request) *session.Workspace {
	sess := GetSession(r.Context())
	if sess == nil {
		return nil
	}
	return sess.Workspace
}

// SetSession stores a session in the context.
//
// This is called by the session middleware after validating the cookie.
func SetSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

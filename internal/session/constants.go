// Package session holds the per-login quote workspaces and the cookie
// settings shared by the handler and middleware packages.
package session

import "time"

const (
	// CookieName is the name of the cookie that stores the session token.
	CookieName = "proforma_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// DefaultTTL is how long an idle session survives.
	DefaultTTL = 12 * time.Hour

	// TokenBytes is the amount of randomness in a session token.
	TokenBytes = 32
)

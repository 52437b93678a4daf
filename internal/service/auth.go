// Package service contains the business logic of the proforma application.
//
// This file implements the single-credential login that guards the quote
// workspace.
package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps failed logins for unknown usernames as slow as real ones.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// =============================================================================
// Interface Definition
// =============================================================================

// AuthService checks the configured credential and manages sessions.
type AuthService interface {
	// Login verifies the credential and starts a session with an empty
	// workspace. Returns domain.EUNAUTHORIZED on any mismatch.
	Login(ctx context.Context, username, password string) (token string, err error)

	// Logout ends the session, discarding its workspace. Idempotent.
	Logout(ctx context.Context, token string)

	// Session returns the live session for token.
	Session(ctx context.Context, token string) (*session.Session, bool)
}

// Credential is the single account allowed to use the application.
type Credential struct {
	Username     string
	PasswordHash string // bcrypt
}

// HashPassword returns the bcrypt hash used in Credential.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// =============================================================================
// Implementation
// =============================================================================

type authService struct {
	credential Credential
	sessions   *session.Store
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(credential Credential, sessions *session.Store, logger *slog.Logger) AuthService {
	return &authService{
		credential: credential,
		sessions:   sessions,
		logger:     logger,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	const op = "auth.login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", domain.NewValidationError(op, "credentials", "Please enter your username and password")
	}

	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.credential.Username)) == 1

	hash := s.credential.PasswordHash
	if !userMatch || hash == "" {
		hash = dummyHash
	}
	passErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	if !userMatch || passErr != nil || s.credential.PasswordHash == "" {
		s.logger.Warn("login failed", "username", username)
		return "", domain.Unauthorized(op, "Invalid username or password")
	}

	token, _, err := s.sessions.Create(s.credential.Username)
	if err != nil {
		return "", domain.Internal(err, op, "failed to create session")
	}

	s.logger.Info("user logged in", "username", s.credential.Username)
	return token, nil
}

func (s *authService) Logout(ctx context.Context, token string) {
	s.sessions.Delete(token)
	s.logger.Debug("session invalidated")
}

func (s *authService) Session(ctx context.Context, token string) (*session.Session, bool) {
	return s.sessions.Get(token)
}

var _ AuthService = (*authService)(nil)

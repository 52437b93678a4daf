package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// Session is one logged-in browser.
type Session struct {
	Username  string
	Workspace *Workspace
	ExpiresAt time.Time
}

// Store keeps sessions in memory, keyed by the SHA-256 of their token so
// the raw token only ever lives in the cookie. Sessions expire after the
// TTL without activity.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	// OnChange, if set, is called with the session count after every
	// create, delete or sweep.
	OnChange func(count int)
}

// NewStore creates an empty store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// TTL returns the idle lifetime of a session.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts a session for username and returns its raw token.
func (s *Store) Create(username string) (string, *Session, error) {
	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}

	sess := &Session{
		Username:  username,
		Workspace: NewWorkspace(),
	}

	s.mu.Lock()
	sess.ExpiresAt = s.now().Add(s.ttl)
	s.sessions[hashToken(token)] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.changed(count)
	return token, sess, nil
}

// Get returns the live session for token and extends its expiry.
func (s *Store) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	key := hashToken(token)

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	now := s.now()
	if !now.Before(sess.ExpiresAt) {
		delete(s.sessions, key)
		count := len(s.sessions)
		s.mu.Unlock()

		s.changed(count)
		return nil, false
	}
	sess.ExpiresAt = now.Add(s.ttl)
	s.mu.Unlock()
	return sess, true
}

// Delete ends the session for token. Unknown tokens are ignored.
func (s *Store) Delete(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	delete(s.sessions, hashToken(token))
	count := len(s.sessions)
	s.mu.Unlock()

	s.changed(count)
}

// Len returns the number of stored sessions, including expired ones not
// yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for key, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, key)
			removed++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("swept expired sessions", "removed", removed, "remaining", count)
		s.changed(count)
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) changed(count int) {
	if s.OnChange != nil {
		s.OnChange(count)
	}
}

// generateToken returns TokenBytes of crypto/rand as hex.
func generateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

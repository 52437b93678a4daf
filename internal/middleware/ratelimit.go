package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/handler"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new rate limiter. Call Run to evict old entries.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
	}
}

// Allow counts a request for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry := rl.entry(key)
	if entry.count >= rl.maxAttempts {
		return false
	}
	entry.count++
	return true
}

// Reset clears the count for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// TimeUntilReset returns how long until the window for key ends.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok {
		return 0
	}
	elapsed := rl.now().Sub(entry.windowStart)
	if elapsed >= rl.window {
		return 0
	}
	return rl.window - elapsed
}

// entry returns the live entry for key, starting a new window when the old
// one has ended. Callers hold rl.mu.
func (rl *RateLimiter) entry(key string) *rateLimitEntry {
	now := rl.now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) >= rl.window {
		entry = &rateLimitEntry{windowStart: now}
		rl.entries[key] = entry
	}
	return entry
}

// Sweep removes entries whose window has ended.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.entries {
		if now.Sub(entry.windowStart) >= rl.window {
			delete(rl.entries, key)
		}
	}
}

// Run sweeps once per window until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware wraps a rate limiter for use as HTTP middleware.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	op      string
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware. op names the
// limited action in logs.
func NewRateLimitMiddleware(limiter *RateLimiter, op string, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		op:      op,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests per client IP.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if !m.limiter.Allow(clientIP) {
			m.logger.Warn("rate limit exceeded",
				"op", m.op,
				"ip", clientIP,
				"path", r.URL.Path,
			)

			retryAfter := int(m.limiter.TimeUntilReset(clientIP).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			if isAPIRequest(r) {
				handler.ErrorResponse(w, r, m.logger, domain.RateLimit(m.op))
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Too Many Requests</title></head>
<body>
<h1>Too Many Requests</h1>
<p>You have made too many requests. Please wait a moment and try again.</p>
</body>
</html>`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Limiters
// =============================================================================

// Limiters holds the rate limits for login attempts and outbound delivery
// (email sends and share links). Every login attempt counts; a successful
// one clears the count.
type Limiters struct {
	login    *RateLimiter
	delivery *RateLimiter
	logger   *slog.Logger
}

// NewLimiters creates the application's limiters:
// - Login: 5 attempts per 15 minutes
// - Delivery: 30 sends per hour
func NewLimiters(logger *slog.Logger) *Limiters {
	return &Limiters{
		login:    NewRateLimiter(5, 15*time.Minute),
		delivery: NewRateLimiter(30, time.Hour),
		logger:   logger,
	}
}

// LimitLogin returns middleware for rate limiting login attempts.
func (l *Limiters) LimitLogin(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(l.login, "auth.login", l.logger).Limit(next)
}

// LimitDelivery returns middleware for rate limiting outbound sends.
func (l *Limiters) LimitDelivery(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(l.delivery, "quote.send", l.logger).Limit(next)
}

// ResetLogin clears the login limit for the request's client after a
// successful login.
func (l *Limiters) ResetLogin(r *http.Request) {
	l.login.Reset(getClientIP(r))
}

// Run evicts expired entries until ctx is cancelled.
func (l *Limiters) Run(ctx context.Context) {
	go l.login.Run(ctx)
	l.delivery.Run(ctx)
}

// =============================================================================
// Helpers
// =============================================================================

// ClientIP extracts the client IP from the request, considering proxy headers.
func ClientIP(r *http.Request) string {
	return getClientIP(r)
}

func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

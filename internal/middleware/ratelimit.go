// ratelimit.go implements a fixed-window request limiter kept in memory.
// The save endpoint uses it keyed by view session so that one runaway
// iframe cannot flood the platform API with writes.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c echo.Context) string

// RealIPKey counts requests per client IP.
func RealIPKey(c echo.Context) string {
	return c.RealIP()
}

// rateLimitEntry tracks request counts for a single key within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter holds the counters behind one RateLimit middleware.
type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

// allow records a request for key and reports whether it is within limits.
func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, exists := l.entries[key]
	if !exists || now.Sub(entry.windowStart) > l.window {
		l.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	entry.count++
	return entry.count <= l.max
}

// prune drops entries idle for two windows.
func (l *rateLimiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, key)
		}
	}
}

// RateLimit returns middleware that allows maxRequests per key within
// window and answers 429 beyond that. Expired counters are pruned every
// minute until ctx is done. A maxRequests of zero or less disables it.
func RateLimit(ctx context.Context, maxRequests int, window time.Duration, key KeyFunc) echo.MiddlewareFunc {
	if maxRequests <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if key == nil {
		key = RealIPKey
	}
	l := &rateLimiter{
		entries: make(map[string]*rateLimitEntry),
		max:     maxRequests,
		window:  window,
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.prune()
			}
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(key(c)) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many saves. Please wait a moment and try again.")
			}
			return next(c)
		}
	}
}

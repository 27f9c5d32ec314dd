package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to SessionOrIP.
	KeyFunc func(*http.Request) string
}

// bucket counts requests in the current and previous fixed windows. The
// previous count is weighted by how much of it the sliding window still
// covers.
type bucket struct {
	start time.Time
	curr  float64
	prev  float64
}

type decision struct {
	allowed   bool
	remaining int
	reset     time.Time
}

type limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiter(limit int, window time.Duration) *limiter {
	return &limiter{max: limit, window: window, buckets: make(map[string]*bucket)}
}

func (l *limiter) take(key string, now time.Time) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.window)
	b, ok := l.buckets[key]
	switch {
	case !ok:
		b = &bucket{start: start}
		l.buckets[key] = b
	case start.Sub(b.start) >= 2*l.window:
		*b = bucket{start: start}
	case start.After(b.start):
		*b = bucket{start: start, prev: b.curr}
	}

	covered := 1 - float64(now.Sub(b.start))/float64(l.window)
	used := b.prev*max(covered, 0) + b.curr
	d := decision{reset: b.start.Add(l.window)}
	if used >= float64(l.max) {
		return d
	}
	b.curr++
	d.allowed = true
	d.remaining = max(int(float64(l.max)-used-1), 0)
	return d
}

// evict drops buckets idle for two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if now.Sub(b.start) >= 2*l.window {
			delete(l.buckets, key)
		}
	}
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit limits requests per key and reports the quota in
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset headers.
// Idle buckets are evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SessionOrIP
	}
	l := newLimiter(cfg.Max, cfg.Window)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()
	return rateLimit(l, cfg.KeyFunc, time.Now)
}

func rateLimit(l *limiter, key func(*http.Request) string, now func() time.Time) Middleware {
	limit := strconv.Itoa(l.max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := now()
			d := l.take(key(r), t)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
			if !d.allowed {
				wait := max(d.reset.Sub(t), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionOrIP keys by the session id when the client presented one,
// otherwise by client address. Freshly issued sessions count against the
// address so that dropping the cookie does not reset the quota.
func SessionOrIP(r *http.Request) string {
	if id := SessionFromContext(r.Context()); id != "" && !SessionIssued(r.Context()) {
		return "s:" + id
	}
	return "ip:" + ClientIP(r)
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// host, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

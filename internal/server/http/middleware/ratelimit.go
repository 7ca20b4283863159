// Package middleware provides HTTP middleware components for the lanterm server.
package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter configuration constants.
const (
	DefaultMaxRequests = 10              // Requests per window
	DefaultBurst       = 5               // Requests allowed back to back
	DefaultWindow      = 1 * time.Minute // Time window for rate limiting
	DefaultCleanup     = 5 * time.Minute // Cleanup interval for stale buckets
)

// RateLimiter is a per-key token bucket limiter.
type RateLimiter struct {
	maxRequests int
	burst       int
	window      time.Duration

	mu          sync.Mutex
	buckets     map[string]*bucket
	cleanupDone chan struct{}
	closeOnce   sync.Once
}

// bucket holds the limiter of a single key.
type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiterOption is a functional option for configuring RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithMaxRequests sets the sustained number of requests per window.
func WithMaxRequests(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxRequests = n
		}
	}
}

// WithBurst sets how many requests may arrive back to back.
func WithBurst(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.burst = n
		}
	}
}

// WithWindow sets the time window for rate limiting.
func WithWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		if d > 0 {
			r.window = d
		}
	}
}

// NewRateLimiter creates a new RateLimiter with the given options.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		maxRequests: DefaultMaxRequests,
		burst:       DefaultBurst,
		window:      DefaultWindow,
		buckets:     make(map[string]*bucket),
		cleanupDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	go r.cleanupLoop()

	return r
}

// limit is the token refill rate.
func (r *RateLimiter) limit() rate.Limit {
	return rate.Limit(float64(r.maxRequests) / r.window.Seconds())
}

func (r *RateLimiter) bucketFor(key string, now time.Time) *bucket {
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit(), r.burst)}
		r.buckets[key] = b
	}
	b.lastAccess = now
	return b
}

// Allow checks if a request from the given key is allowed.
func (r *RateLimiter) Allow(key string) bool {
	return r.allowAt(key, time.Now())
}

func (r *RateLimiter) allowAt(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bucketFor(key, now).limiter.AllowN(now, 1)
}

// Remaining returns the number of whole tokens left for a key.
func (r *RateLimiter) Remaining(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		return r.burst
	}
	tokens := b.limiter.TokensAt(time.Now())
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// RetryAfter returns how long the key has to wait for its next token.
func (r *RateLimiter) RetryAfter(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		return 0
	}
	missing := 1 - b.limiter.TokensAt(time.Now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(r.limit()) * float64(time.Second))
}

// SetLimit changes the rate of every bucket, existing ones included.
func (r *RateLimiter) SetLimit(maxRequests, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxRequests > 0 {
		r.maxRequests = maxRequests
	}
	if burst > 0 {
		r.burst = burst
	}
	now := time.Now()
	for _, b := range r.buckets {
		b.limiter.SetLimitAt(now, r.limit())
		b.limiter.SetBurstAt(now, r.burst)
	}
}

// Reset clears the rate limit for a key.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
}

// Close stops the cleanup goroutine.
func (r *RateLimiter) Close() {
	r.closeOnce.Do(func() { close(r.cleanupDone) })
}

// cleanupLoop periodically removes stale buckets.
func (r *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(DefaultCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-r.cleanupDone:
			return
		case now := <-ticker.C:
			r.cleanup(now)
		}
	}
}

// cleanup removes buckets that haven't been accessed recently.
func (r *RateLimiter) cleanup(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window * 2)
	for key, b := range r.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

// KeyExtractor is a function that extracts a rate limit key from a request.
type KeyExtractor func(*http.Request) string

// TrustProxy controls whether to trust X-Forwarded-For headers.
// Set to true only when behind a trusted reverse proxy.
var TrustProxy = false

// IPKeyExtractor extracts the client IP address as the rate limit key.
// X-Forwarded-For and X-Real-IP are only honoured when TrustProxy is true.
func IPKeyExtractor(r *http.Request) string {
	if TrustProxy {
		// "client, proxy1, proxy2": the first entry is the original client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware returns an HTTP middleware that applies rate limiting.
func RateLimitMiddleware(limiter *RateLimiter, keyExtractor KeyExtractor) func(http.Handler) http.Handler {
	if keyExtractor == nil {
		keyExtractor = IPKeyExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)

			if !limiter.Allow(key) {
				retry := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
				if retry < 1 {
					retry = 1
				}
				log.Warn().Str("key", key).Str("path", r.URL.Path).Msg("rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
					"code":  "RATE_LIMITED",
				})
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
			next.ServeHTTP(w, r)
		})
	}
}

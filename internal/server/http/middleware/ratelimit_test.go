package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewRateLimiter(t *testing.T) {
	limiter := NewRateLimiter()
	defer limiter.Close()

	if limiter.maxRequests != DefaultMaxRequests {
		t.Errorf("expected maxRequests %d, got %d", DefaultMaxRequests, limiter.maxRequests)
	}
	if limiter.burst != DefaultBurst {
		t.Errorf("expected burst %d, got %d", DefaultBurst, limiter.burst)
	}
	if limiter.window != DefaultWindow {
		t.Errorf("expected window %v, got %v", DefaultWindow, limiter.window)
	}
}

func TestNewRateLimiter_InvalidOptions(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(0), WithBurst(-1), WithWindow(-1))
	defer limiter.Close()

	if limiter.maxRequests != DefaultMaxRequests || limiter.burst != DefaultBurst || limiter.window != DefaultWindow {
		t.Errorf("invalid options should keep defaults, got %d/%d/%v", limiter.maxRequests, limiter.burst, limiter.window)
	}
}

func TestAllow_BurstThenRefill(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(60), WithBurst(3), WithWindow(time.Minute))
	defer limiter.Close()

	now := time.Now()
	for i := 0; i < 3; i++ {
		if !limiter.allowAt("client", now) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.allowAt("client", now) {
		t.Error("fourth request should be rate limited")
	}

	// 60 per minute refills one token per second
	if !limiter.allowAt("client", now.Add(1100*time.Millisecond)) {
		t.Error("request after refill should be allowed")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(1), WithBurst(1))
	defer limiter.Close()

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("first request of each key should be allowed")
	}
	if limiter.Allow("a") {
		t.Error("second request of key a should be limited")
	}
	if limiter.Remaining("b") != 0 {
		t.Errorf("Remaining(b) = %d, want 0", limiter.Remaining("b"))
	}
	if limiter.Remaining("unknown") != 1 {
		t.Errorf("Remaining(unknown) = %d, want burst", limiter.Remaining("unknown"))
	}

	limiter.Reset("a")
	if !limiter.Allow("a") {
		t.Error("Reset should restore the bucket")
	}
}

func TestSetLimit(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(1), WithBurst(1))
	defer limiter.Close()

	now := time.Now()
	limiter.allowAt("k", now)
	limiter.SetLimit(10, 5)
	if limiter.burst != 5 || limiter.maxRequests != 10 {
		t.Errorf("SetLimit() did not update the limiter: %d/%d", limiter.maxRequests, limiter.burst)
	}
}

func TestCleanup(t *testing.T) {
	limiter := NewRateLimiter(WithWindow(time.Second))
	defer limiter.Close()

	limiter.Allow("stale")
	limiter.cleanup(time.Now().Add(time.Minute))

	limiter.mu.Lock()
	n := len(limiter.buckets)
	limiter.mu.Unlock()
	if n != 0 {
		t.Errorf("cleanup left %d buckets", n)
	}
}

func TestConcurrentAllow(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(1), WithBurst(50), WithWindow(time.Hour))
	defer limiter.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d requests, want 50", allowed)
	}
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trust      bool
		want       string
	}{
		{"ipv4 with port", "192.168.1.5:51234", "", false, "192.168.1.5"},
		{"ipv6 with port", "[::1]:8080", "", false, "::1"},
		{"no port", "10.0.0.1", "", false, "10.0.0.1"},
		{"xff ignored without trust", "10.0.0.1:1", "1.2.3.4", false, "10.0.0.1"},
		{"xff trusted", "10.0.0.1:1", "1.2.3.4, 10.0.0.1", true, "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := TrustProxy
			TrustProxy = tt.trust
			defer func() { TrustProxy = old }()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := IPKeyExtractor(r); got != tt.want {
				t.Errorf("IPKeyExtractor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(1), WithBurst(2), WithWindow(time.Hour))
	defer limiter.Close()

	handler := RateLimitMiddleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/exec", nil)
		r.RemoteAddr = "192.168.1.9:4000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Error("429 response should carry Retry-After")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status %d, want %d", i+1, codes[i], want[i])
		}
	}
}

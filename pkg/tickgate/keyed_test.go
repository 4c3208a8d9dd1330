package tickgate

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestRateLimiter(t *testing.T, clock *fakeClock, opts ...KeyedOption) RateLimiter {
	t.Helper()
	opts = append([]KeyedOption{WithKeyedTickSource(clock.Now)}, opts...)
	limiter, err := NewRateLimiter(opts...)
	if err != nil {
		t.Fatalf("NewRateLimiter() = %v", err)
	}
	return limiter
}

func TestKeyed_Allow(t *testing.T) {
	clock := newFakeClock(0)
	limiter := newTestRateLimiter(t, clock, WithDefaults(1000, 3))

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow("user-1")
		if err != nil {
			t.Fatalf("Allow() = %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("call %d denied", i+1)
		}
		if decision.Limit != 3 {
			t.Errorf("Limit = %d, want 3", decision.Limit)
		}
	}

	decision, err := limiter.Allow("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed {
		t.Fatal("4th call at same tick should be denied")
	}
	if decision.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0 on denial", decision.RetryAfter)
	}

	// Keys are independent buckets.
	other, err := limiter.Allow("user-2")
	if err != nil {
		t.Fatal(err)
	}
	if !other.Allowed {
		t.Error("fresh key should have a full bucket")
	}

	if _, err := limiter.Allow(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Allow(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestKeyed_AllowRequest_DisabledRoute(t *testing.T) {
	clock := newFakeClock(0)
	config := NewConfig()
	config.Defaults = PolicyConfig{PeriodTicks: 1000, Capacity: 1, Enabled: true}
	config.Policies = map[string]PolicyConfig{
		"/health": {PeriodTicks: 1000, Capacity: 1, Enabled: false},
	}
	limiter := newTestRateLimiter(t, clock, WithConfig(config))

	r := httptest.NewRequest("GET", "/health", nil)
	r.RemoteAddr = "203.0.113.9:443"

	// Disabled routes are never limited.
	for i := 0; i < 5; i++ {
		decision, err := limiter.AllowRequest(r)
		if err != nil {
			t.Fatalf("AllowRequest() = %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d to disabled route denied", i+1)
		}
		if decision.Route != "/health" {
			t.Errorf("Route = %q, want /health", decision.Route)
		}
	}
}

func TestKeyed_Middleware(t *testing.T) {
	clock := newFakeClock(0)
	limiter := newTestRateLimiter(t, clock, WithDefaults(1000, 2))

	served := 0
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/api/data", nil)
		r.RemoteAddr = "203.0.113.9:443"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	// Two admitted requests with headers.
	for i := 0; i < 2; i++ {
		w := do()
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", w.Header().Get("X-RateLimit-Limit"))
		}
	}
	if served != 2 {
		t.Fatalf("handler served %d, want 2", served)
	}

	// Third at the same tick: 429, handler not reached.
	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if served != 2 {
		t.Error("handler invoked for a rate-limited request")
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", w.Header().Get("X-RateLimit-Remaining"))
	}

	// After a refill the same client is served again.
	clock.Advance(1000)
	if w := do(); w.Code != http.StatusOK {
		t.Errorf("status after refill = %d, want 200", w.Code)
	}
}

func TestKeyed_MiddlewareSeparatesClients(t *testing.T) {
	clock := newFakeClock(0)
	limiter := newTestRateLimiter(t, clock, WithDefaults(1000, 1))

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	if code := do("203.0.113.9:1"); code != http.StatusOK {
		t.Fatalf("first client status = %d", code)
	}
	if code := do("203.0.113.9:2"); code != http.StatusTooManyRequests {
		t.Fatalf("same IP different port should share a bucket, got %d", code)
	}
	if code := do("198.51.100.7:1"); code != http.StatusOK {
		t.Errorf("different IP should have its own bucket, got %d", code)
	}
}

func TestKeyed_WithConfigFile(t *testing.T) {
	content := `
defaults:
  period_ticks: 1000
  capacity: 1
  enabled: true
key_extractor: "static:global"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	clock := newFakeClock(0)
	limiter := newTestRateLimiter(t, clock, WithConfigFile(path))

	// static key: every client shares the single bucket.
	r1 := httptest.NewRequest("GET", "/", nil)
	r1.RemoteAddr = "203.0.113.9:443"
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.RemoteAddr = "198.51.100.7:443"

	d1, err := limiter.AllowRequest(r1)
	if err != nil {
		t.Fatal(err)
	}
	if !d1.Allowed {
		t.Fatal("first request denied")
	}
	d2, err := limiter.AllowRequest(r2)
	if err != nil {
		t.Fatal(err)
	}
	if d2.Allowed {
		t.Error("shared static bucket should deny the second client")
	}
}

func TestKeyed_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  KeyedOption
	}{
		{"nil store", WithStore(nil)},
		{"nil config", WithConfig(nil)},
		{"nil key extractor", WithKeyExtractor(nil)},
		{"zero capacity defaults", WithDefaults(1000, 0)},
		{"negative cleanup interval", WithCleanupInterval(-1)},
		{"nil route extractor", WithRouteExtractor(nil)},
		{"nil tick source", WithKeyedTickSource(nil)},
		{"nil metrics", WithKeyedMetrics(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRateLimiter(tt.opt); err == nil {
				t.Error("NewRateLimiter() accepted an invalid option")
			}
		})
	}
}

func TestKeyed_Metrics(t *testing.T) {
	clock := newFakeClock(0)
	rec := &fakeRecorder{}
	limiter := newTestRateLimiter(t, clock, WithDefaults(1000, 1), WithKeyedMetrics(rec))

	limiter.Allow("user-1")
	limiter.Allow("user-1")

	want := []recordedRequest{
		{"user-1", true},
		{"user-1", false},
	}
	if len(rec.requests) != len(want) {
		t.Fatalf("recorded %d requests, want %d", len(rec.requests), len(want))
	}
	for i, r := range rec.requests {
		if r != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, r, want[i])
		}
	}
}

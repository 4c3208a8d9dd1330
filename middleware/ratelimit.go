// Package middleware provides HTTP rate limiting backed by a shared
// bucket state store, so several instances behind one load balancer can
// enforce a single set of limits. For in-process limiting prefer the
// keyed limiter in pkg/tickgate.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/tickgate/core"
	"github.com/yourusername/tickgate/pkg/tickgate"
	"github.com/yourusername/tickgate/store"
)

// KeyFunc extracts a client identifier from a request.
type KeyFunc func(*http.Request) string

// RateLimiter is HTTP middleware that runs every request through a shared
// token bucket store.
type RateLimiter struct {
	bucket  *core.TokenBucket
	store   store.Store
	keyFunc KeyFunc
	now     tickgate.TickSource
}

// Config for creating the middleware.
type Config struct {
	PeriodTicks uint32              // refill window in ticks
	Capacity    uint32              // calls admitted per window (burst size)
	KeyFunc     KeyFunc             // optional, defaults to client IP
	Store       store.Store         // optional, defaults to in-memory
	TickSource  tickgate.TickSource // optional, defaults to the wall clock
}

// NewRateLimiter creates rate limiting middleware. It rejects zero period
// or capacity.
func NewRateLimiter(config Config) (*RateLimiter, error) {
	bucket, err := core.NewTokenBucket(core.Config{
		Period:   core.Ticks(config.PeriodTicks),
		Capacity: config.Capacity,
	})
	if err != nil {
		return nil, err
	}

	if config.KeyFunc == nil {
		config.KeyFunc = defaultKeyFunc
	}
	if config.Store == nil {
		config.Store = store.NewMemoryStore()
	}
	if config.TickSource == nil {
		config.TickSource = tickgate.WallTicks
	}

	return &RateLimiter{
		bucket:  bucket,
		store:   config.Store,
		keyFunc: config.KeyFunc,
		now:     config.TickSource,
	}, nil
}

// defaultKeyFunc keys by client IP, honoring X-Forwarded-For behind a
// proxy.
func defaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Middleware wraps next with rate limiting.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)

		state, result := rl.bucket.Check(rl.store.Get(key), rl.now())
		rl.store.Set(key, state)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))

		if !result.Allowed {
			retryAfter := time.Duration(result.RetryAfter) * tickgate.TickDuration
			retrySecs := int64(retryAfter / time.Second)
			if retrySecs < 1 {
				retrySecs = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySecs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":            "rate_limit_exceeded",
				"message":          "Too many requests. Please try again later.",
				"retry_after_ms":   retryAfter.Milliseconds(),
				"retry_after_tick": result.RetryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

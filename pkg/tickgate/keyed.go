package tickgate

import (
	"fmt"
	"net/http"
	"time"
)

// RateLimiter applies per-client rate limiting across many keys, each key
// owning its own token bucket.
type RateLimiter interface {
	// Allow checks whether a call under the given key is admitted.
	Allow(key string) (*Decision, error)

	// AllowRequest extracts the key from the request with the configured
	// extractor and checks admission under the route's policy.
	AllowRequest(r *http.Request) (*Decision, error)

	// Middleware wraps next with rate limiting: standard X-RateLimit-*
	// headers on every response, 429 with Retry-After on denial.
	Middleware(next http.Handler) http.Handler

	// StartBackgroundCleanup begins periodic removal of idle per-key
	// limiters. The returned function stops it.
	StartBackgroundCleanup() func()
}

// Decision is the outcome of one keyed admission check.
type Decision struct {
	// Allowed reports whether the call was admitted
	Allowed bool

	// Remaining is the token count left in the key's bucket
	Remaining uint32

	// Limit is the bucket capacity (maximum burst)
	Limit uint32

	// RetryAfter is the estimated wait before the next admission, in wall
	// time under TickDuration. Zero when Allowed.
	RetryAfter time.Duration

	// Key is the rate limit key that was checked
	Key string

	// Route is the route path, when checked via AllowRequest
	Route string
}

type keyedLimiter struct {
	store           LimiterStore
	config          *Config
	keyExtractor    KeyExtractor
	routeExtractor  func(string) string
	tickSource      TickSource
	metrics         MetricsRecorder
	cleanupAge      time.Duration
	cleanupInterval time.Duration
}

// NewRateLimiter creates a keyed RateLimiter. Without options it limits by
// client IP under the default policy with an in-memory per-key store.
//
// Example:
//
//	limiter, err := tickgate.NewRateLimiter(
//	    tickgate.WithDefaults(1000, 5), // 5 calls per 1000 ticks
//	    tickgate.WithKeyExtractor(tickgate.ExtractIPWithProxy()),
//	)
func NewRateLimiter(opts ...KeyedOption) (RateLimiter, error) {
	kl := &keyedLimiter{
		config:          NewConfig(),
		routeExtractor:  func(path string) string { return path },
		cleanupAge:      1 * time.Hour,
		cleanupInterval: 10 * time.Minute,
	}

	for _, opt := range opts {
		if err := opt(kl); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if kl.keyExtractor == nil {
		extractor, err := ParseKeyExtractorSpec(kl.config.KeyExtractor)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key extractor spec: %w", err)
		}
		kl.keyExtractor = extractor
	}

	if kl.store == nil {
		var limiterOpts []Option
		if kl.tickSource != nil {
			limiterOpts = append(limiterOpts, WithTickSource(kl.tickSource))
		}
		store, err := NewInMemoryStore(kl.config.Defaults, kl.cleanupAge, limiterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create default store: %w", err)
		}
		kl.store = store
	}

	return kl, nil
}

// Allow checks whether a call under the given key is admitted.
func (kl *keyedLimiter) Allow(key string) (*Decision, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	limiter, err := kl.store.GetLimiter(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get limiter: %w", err)
	}

	allowed := limiter.Allow()
	if kl.metrics != nil {
		kl.metrics.RecordRequest(key, allowed)
	}

	decision := &Decision{
		Allowed:   allowed,
		Remaining: limiter.Remaining(),
		Limit:     limiter.Capacity(),
		Key:       key,
	}
	if !allowed {
		decision.RetryAfter = time.Duration(limiter.RetryAfter()) * TickDuration
	}
	return decision, nil
}

// AllowRequest checks an HTTP request under the configured key extractor.
// Routes whose policy is disabled are always admitted. Enabled routes
// currently share the default policy's buckets; distinct per-route bucket
// policies are not applied yet.
func (kl *keyedLimiter) AllowRequest(r *http.Request) (*Decision, error) {
	key, err := kl.keyExtractor(r)
	if err != nil {
		return nil, fmt.Errorf("key extraction failed: %w", err)
	}

	route := kl.routeExtractor(r.URL.Path)
	policy := kl.config.GetPolicy(route)

	if !policy.Enabled {
		return &Decision{
			Allowed:   true,
			Remaining: policy.Capacity,
			Limit:     policy.Capacity,
			Key:       key,
			Route:     route,
		}, nil
	}

	decision, err := kl.Allow(key)
	if err != nil {
		return nil, err
	}
	decision.Route = route
	return decision, nil
}

// Middleware wraps next with rate limiting. Admitted requests flow through
// with X-RateLimit-Limit and X-RateLimit-Remaining set; denied requests
// get 429 with Retry-After and X-RateLimit-Reset.
func (kl *keyedLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := kl.AllowRequest(r)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

		if !decision.Allowed {
			resetAt := time.Now().Add(decision.RetryAfter).Unix()
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt))
			retrySecs := int64(decision.RetryAfter / time.Second)
			if retrySecs < 1 {
				retrySecs = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySecs))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StartBackgroundCleanup begins periodic cleanup of idle per-key limiters
// for stores that support it.
func (kl *keyedLimiter) StartBackgroundCleanup() func() {
	if s, ok := kl.store.(*InMemoryStore); ok {
		return s.StartBackgroundCleanup(kl.cleanupInterval)
	}
	return func() {}
}

// KeyedOption is a functional option for configuring a keyed RateLimiter.
type KeyedOption func(*keyedLimiter) error

// WithStore sets a custom per-key limiter store.
func WithStore(store LimiterStore) KeyedOption {
	return func(kl *keyedLimiter) error {
		if store == nil {
			return fmt.Errorf("%w: store cannot be nil", ErrInvalidConfig)
		}
		kl.store = store
		return nil
	}
}

// WithConfig sets the full keyed configuration.
func WithConfig(config *Config) KeyedOption {
	return func(kl *keyedLimiter) error {
		if config == nil {
			return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
		}
		if err := config.Validate(); err != nil {
			return err
		}
		kl.config = config
		return nil
	}
}

// WithConfigFile loads the keyed configuration from a YAML file.
func WithConfigFile(path string) KeyedOption {
	return func(kl *keyedLimiter) error {
		config, err := LoadConfigFromFile(path)
		if err != nil {
			return err
		}
		kl.config = config
		return nil
	}
}

// WithKeyExtractor sets a custom key extractor.
func WithKeyExtractor(extractor KeyExtractor) KeyedOption {
	return func(kl *keyedLimiter) error {
		if extractor == nil {
			return fmt.Errorf("%w: key extractor cannot be nil", ErrInvalidConfig)
		}
		kl.keyExtractor = extractor
		return nil
	}
}

// WithDefaults sets the default policy: capacity calls admitted per
// periodTicks, keyed by client IP.
func WithDefaults(periodTicks uint32, capacity uint32) KeyedOption {
	return func(kl *keyedLimiter) error {
		policy := PolicyConfig{
			PeriodTicks: periodTicks,
			Capacity:    capacity,
			Enabled:     true,
		}
		if err := policy.Validate(); err != nil {
			return err
		}
		kl.config = &Config{
			Defaults:     policy,
			Policies:     make(map[string]PolicyConfig),
			KeyExtractor: "ip",
			CleanupAge:   "1h",
		}
		return nil
	}
}

// WithCleanupAge sets how long idle per-key limiters are kept. Zero
// disables cleanup.
func WithCleanupAge(age time.Duration) KeyedOption {
	return func(kl *keyedLimiter) error {
		kl.cleanupAge = age
		return nil
	}
}

// WithCleanupInterval sets how often the background cleanup runs.
func WithCleanupInterval(interval time.Duration) KeyedOption {
	return func(kl *keyedLimiter) error {
		if interval < 0 {
			return fmt.Errorf("%w: cleanup interval cannot be negative", ErrInvalidConfig)
		}
		kl.cleanupInterval = interval
		return nil
	}
}

// WithRouteExtractor sets how the route is derived from a request path,
// e.g. to collapse path parameters.
func WithRouteExtractor(fn func(path string) string) KeyedOption {
	return func(kl *keyedLimiter) error {
		if fn == nil {
			return fmt.Errorf("%w: route extractor cannot be nil", ErrInvalidConfig)
		}
		kl.routeExtractor = fn
		return nil
	}
}

// WithKeyedTickSource sets the tick source used by every per-key limiter
// the default store creates.
func WithKeyedTickSource(now TickSource) KeyedOption {
	return func(kl *keyedLimiter) error {
		if now == nil {
			return fmt.Errorf("%w: tick source cannot be nil", ErrInvalidConfig)
		}
		kl.tickSource = now
		return nil
	}
}

// WithKeyedMetrics attaches a metrics recorder; every keyed admission is
// recorded under its key.
func WithKeyedMetrics(rec MetricsRecorder) KeyedOption {
	return func(kl *keyedLimiter) error {
		if rec == nil {
			return fmt.Errorf("%w: metrics recorder cannot be nil", ErrInvalidConfig)
		}
		kl.metrics = rec
		return nil
	}
}

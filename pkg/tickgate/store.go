package tickgate

import (
	"fmt"
	"sync"
	"time"
)

// LimiterStore hands out the per-key Limiter instances behind a keyed rate
// limiter. Implementations create limiters on first use.
type LimiterStore interface {
	// GetLimiter returns the limiter for key, creating one with the
	// store's policy if none exists yet.
	GetLimiter(key string) (*Limiter, error)

	// Cleanup removes idle limiters and reports how many were removed.
	Cleanup() (int, error)

	// Count returns the number of live limiters.
	Count() int
}

// InMemoryStore is a thread-safe LimiterStore backed by a map, suitable
// for single-instance deployments. Idle entries are dropped after
// cleanupAge.
type InMemoryStore struct {
	mu         sync.RWMutex
	limiters   map[string]*limiterEntry
	policy     PolicyConfig
	opts       []Option
	cleanupAge time.Duration
}

type limiterEntry struct {
	limiter *Limiter

	mu           sync.Mutex // protects lastAccessed
	lastAccessed time.Time
}

// NewInMemoryStore creates a store that builds per-key limiters from
// policy and the given limiter options (shared tick source, metrics, and
// so on). cleanupAge of zero disables cleanup.
func NewInMemoryStore(policy PolicyConfig, cleanupAge time.Duration, opts ...Option) (*InMemoryStore, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &InMemoryStore{
		limiters:   make(map[string]*limiterEntry),
		policy:     policy,
		opts:       opts,
		cleanupAge: cleanupAge,
	}, nil
}

// GetLimiter returns the limiter for key, creating it on first use.
func (s *InMemoryStore) GetLimiter(key string) (*Limiter, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	// Fast path: limiter already exists.
	s.mu.RLock()
	entry, exists := s.limiters[key]
	s.mu.RUnlock()

	if !exists {
		s.mu.Lock()
		// Another goroutine may have created it since the read lock.
		entry, exists = s.limiters[key]
		if !exists {
			limiter, err := New(Ticks(s.policy.PeriodTicks), s.policy.Capacity, s.opts...)
			if err != nil {
				s.mu.Unlock()
				return nil, fmt.Errorf("failed to create limiter for key %q: %w", key, err)
			}
			entry = &limiterEntry{limiter: limiter}
			s.limiters[key] = entry
		}
		s.mu.Unlock()
	}

	entry.mu.Lock()
	entry.lastAccessed = time.Now()
	entry.mu.Unlock()
	return entry.limiter, nil
}

// Cleanup removes limiters that have not been used within cleanupAge.
func (s *InMemoryStore) Cleanup() (int, error) {
	if s.cleanupAge == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.cleanupAge)
	removed := 0
	for key, entry := range s.limiters {
		entry.mu.Lock()
		idle := entry.lastAccessed.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of live limiters.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// StartBackgroundCleanup runs Cleanup every interval until the returned
// stop function is called.
func (s *InMemoryStore) StartBackgroundCleanup(interval time.Duration) func() {
	if s.cleanupAge == 0 || interval == 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

package tickgate

import (
	"context"
	"sync"

	"github.com/yourusername/tickgate/core"
)

// MetricsRecorder receives the outcome of every admission attempt. The
// metrics package provides a Prometheus-backed implementation.
type MetricsRecorder interface {
	RecordRequest(key string, allowed bool)
}

// Limiter throttles invocations of caller-supplied functions to at most
// Capacity calls per Period ticks, with bursts of up to Capacity. Tokens
// accrue lazily from an injected tick source, so a limiter costs nothing
// while idle.
//
// The zero value is not usable; construct with New. All methods are safe
// for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	bucket *core.TokenBucket
	state  *core.BucketState
	onDrop func(uint32)

	now   TickSource
	sleep SleepFunc

	metrics    MetricsRecorder
	metricsKey string
}

// New creates a Limiter that admits capacity calls per period ticks,
// starting with a full bucket. It returns an error for a zero period or
// capacity, which would otherwise divide by zero in the refill math.
func New(period Ticks, capacity uint32, opts ...Option) (*Limiter, error) {
	bucket, err := core.NewTokenBucket(core.Config{Period: period, Capacity: capacity})
	if err != nil {
		return nil, err
	}

	l := &Limiter{
		bucket: bucket,
		now:    WallTicks,
		sleep:  SleepTicks,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	l.state = bucket.Refill(nil, l.now())
	return l, nil
}

// SetDroppedCallCallback registers fn to be invoked with the number of
// dropped calls immediately before the next successful admission. It
// replaces any previously registered callback and has no immediate effect.
func (l *Limiter) SetDroppedCallCallback(fn func(dropped uint32)) {
	l.mu.Lock()
	l.onDrop = fn
	l.mu.Unlock()
}

// Allow attempts to consume one token without invoking anything. It
// flushes any pending drop notification on success and tallies a dropped
// call on failure. CallOrDrop and the keyed limiter are built on it.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	state, result := l.bucket.Check(l.state, l.now())
	l.state = state
	cb := l.onDrop
	l.mu.Unlock()

	l.record(result.Allowed)
	if result.Allowed && cb != nil && result.FlushedDrops > 0 {
		cb(result.FlushedDrops)
	}
	return result.Allowed
}

// CallOrDrop invokes fn if a token is available and reports whether it
// did. On a full drop path fn is never invoked; the drop is tallied and
// reported through the dropped-call callback just before the next
// admission succeeds.
func (l *Limiter) CallOrDrop(fn func()) bool {
	if !l.Allow() {
		return false
	}
	fn()
	return true
}

// Call blocks until a token is available, then invokes fn and returns its
// error. It never drops: every call is eventually admitted once enough
// time has passed. fn's own execution time is not counted against the
// rate.
func (l *Limiter) Call(fn func() error) error {
	return l.CallContext(context.Background(), fn)
}

// CallContext is Call with cancellation: ctx is checked on every wait
// iteration, and fn is not invoked if ctx is done first. The wait estimate
// is advisory; after each sleep the bucket is re-checked rather than
// trusted.
func (l *Limiter) CallContext(ctx context.Context, fn func() error) error {
	for {
		l.mu.Lock()
		state, result := l.bucket.Acquire(l.state, l.now())
		l.state = state
		cb := l.onDrop
		l.mu.Unlock()

		if result.Allowed {
			l.record(true)
			if cb != nil && result.FlushedDrops > 0 {
				cb(result.FlushedDrops)
			}
			return fn()
		}

		if err := l.sleep(ctx, result.RetryAfter); err != nil {
			return err
		}
	}
}

// Remaining returns the tokens currently available, after refilling for
// elapsed time.
func (l *Limiter) Remaining() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = l.bucket.Refill(l.state, l.now())
	return l.state.Tokens
}

// Capacity returns the bucket's maximum token count.
func (l *Limiter) Capacity() uint32 {
	return l.bucket.Config().Capacity
}

// RetryAfter estimates how many ticks until the next call would be
// admitted. Zero means a token is available now.
func (l *Limiter) RetryAfter() Ticks {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.state = l.bucket.Refill(l.state, now)
	if l.state.Tokens > 0 {
		return 0
	}
	return l.bucket.RetryAfter(l.state, now)
}

func (l *Limiter) record(allowed bool) {
	if l.metrics != nil {
		l.metrics.RecordRequest(l.metricsKey, allowed)
	}
}

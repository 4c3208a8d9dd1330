package tickgate

import "fmt"

// Option is a functional option for configuring a Limiter.
type Option func(*Limiter) error

// WithTickSource replaces the default wall-clock tick source. The limiter
// never assumes the source starts at zero, so simulated sources can begin
// anywhere, including just below the wrap point.
func WithTickSource(now TickSource) Option {
	return func(l *Limiter) error {
		if now == nil {
			return fmt.Errorf("%w: tick source cannot be nil", ErrInvalidConfig)
		}
		l.now = now
		return nil
	}
}

// WithSleep replaces the default suspend primitive used by Call and
// CallContext between admission attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(l *Limiter) error {
		if sleep == nil {
			return fmt.Errorf("%w: sleep func cannot be nil", ErrInvalidConfig)
		}
		l.sleep = sleep
		return nil
	}
}

// WithDroppedCallCallback registers the dropped-call callback at
// construction time. Equivalent to calling SetDroppedCallCallback on the
// built limiter.
func WithDroppedCallCallback(fn func(dropped uint32)) Option {
	return func(l *Limiter) error {
		l.onDrop = fn
		return nil
	}
}

// WithMetrics attaches a metrics recorder. Every admission attempt is
// recorded under the given key.
func WithMetrics(rec MetricsRecorder, key string) Option {
	return func(l *Limiter) error {
		if rec == nil {
			return fmt.Errorf("%w: metrics recorder cannot be nil", ErrInvalidConfig)
		}
		l.metrics = rec
		l.metricsKey = key
		return nil
	}
}

package core

import (
	"errors"
	"math"
)

// Ticks is one unit of the monotonic time source that drives the bucket.
// The counter is a fixed-width unsigned value: it wraps from MaxTick back
// to zero, and all elapsed-time arithmetic in this package is defined
// modulo that wraparound.
type Ticks uint32

// MaxTick is the largest representable tick value. The tick counter wraps
// from MaxTick to 0.
const MaxTick Ticks = math.MaxUint32

var (
	// ErrZeroPeriod is returned when a policy has a zero refill period
	ErrZeroPeriod = errors.New("refill period must be positive")

	// ErrZeroCapacity is returned when a policy has a zero token capacity
	ErrZeroCapacity = errors.New("bucket capacity must be positive")
)

// Config defines a rate limiting policy: Capacity tokens are replenished
// over every Period ticks. Both values are fixed for the lifetime of a
// bucket; together they define the sustained rate (Capacity/Period) and
// the maximum burst size (Capacity).
type Config struct {
	Period   Ticks  // Ticks over which Capacity tokens are replenished
	Capacity uint32 // Maximum tokens (burst size)
}

// Validate rejects policies that would divide by zero in the token and
// wait-time computations.
func (c Config) Validate() error {
	if c.Period == 0 {
		return ErrZeroPeriod
	}
	if c.Capacity == 0 {
		return ErrZeroCapacity
	}
	return nil
}

// BucketState is the complete mutable state of one token bucket. It is
// JSON-serializable so stores can persist per-client state.
type BucketState struct {
	// Tokens currently available, always in [0, Capacity]
	Tokens uint32 `json:"tokens"`

	// LastRefillTick is the tick at which the bucket was last topped up.
	// It advances by exactly the time consumed producing the added tokens,
	// not to "now", so fractional progress toward the next token carries
	// over to the next refill. It may wrap.
	LastRefillTick Ticks `json:"last_refill_tick"`

	// DroppedCalls counts denied admissions since the last successful one
	DroppedCalls uint32 `json:"dropped_calls"`
}

// CheckResult contains the outcome of one admission attempt.
type CheckResult struct {
	// Allowed reports whether a token was consumed
	Allowed bool

	// Remaining is the token count after this attempt
	Remaining uint32

	// Limit is the bucket capacity
	Limit uint32

	// RetryAfter estimates how many ticks until the next token exists.
	// Zero when Allowed.
	RetryAfter Ticks

	// FlushedDrops is the dropped-call tally that this admission cleared.
	// Non-zero only on the first successful admission after one or more
	// denials.
	FlushedDrops uint32
}

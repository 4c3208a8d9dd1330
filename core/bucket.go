package core

// TokenBucket implements the token bucket algorithm over a wrapping tick
// counter. It is a pure state-transition machine: callers hold the
// BucketState and pass the current tick in, which keeps the algorithm
// independent of any clock and lets stores persist state between checks.
type TokenBucket struct {
	config Config
}

// NewTokenBucket creates a token bucket for the given policy. The policy
// is validated here so a zero period or capacity can never reach the
// division in the refill math.
func NewTokenBucket(config Config) (*TokenBucket, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TokenBucket{config: config}, nil
}

// Config returns the policy this bucket was built with.
func (tb *TokenBucket) Config() Config {
	return tb.config
}

// Check performs one non-blocking admission attempt. On success it clears
// the dropped-call tally into the result and consumes one token; on denial
// it records the drop and estimates the wait until the next token.
//
// A nil state means a fresh bucket: full, last refilled at now.
func (tb *TokenBucket) Check(state *BucketState, now Ticks) (*BucketState, CheckResult) {
	return tb.admit(state, now, true)
}

// Acquire is Check without drop bookkeeping: a denial leaves the
// dropped-call tally untouched. Blocking callers that retry until admitted
// use this so their waiting never shows up as dropped calls.
func (tb *TokenBucket) Acquire(state *BucketState, now Ticks) (*BucketState, CheckResult) {
	return tb.admit(state, now, false)
}

func (tb *TokenBucket) admit(state *BucketState, now Ticks, countDrop bool) (*BucketState, CheckResult) {
	next := tb.Refill(state, now)

	result := CheckResult{
		Limit: tb.config.Capacity,
	}

	if next.Tokens > 0 {
		result.Allowed = true
		result.FlushedDrops = next.DroppedCalls
		next.DroppedCalls = 0
		next.Tokens--
		result.Remaining = next.Tokens
		return next, result
	}

	if countDrop {
		next.DroppedCalls++
	}
	result.RetryAfter = tb.RetryAfter(next, now)
	return next, result
}

// Refill returns a copy of state topped up for the ticks elapsed since its
// last refill. Tokens accrue only for whole multiples of the per-token
// duration; the remainder stays encoded in LastRefillTick, which advances
// by the time consumed producing the new tokens rather than jumping to now.
//
// A nil state yields a full bucket last refilled at now.
func (tb *TokenBucket) Refill(state *BucketState, now Ticks) *BucketState {
	if state == nil {
		return &BucketState{
			Tokens:         tb.config.Capacity,
			LastRefillTick: now,
		}
	}

	elapsed := Elapsed(now, state.LastRefillTick)

	// 64-bit intermediates: elapsed*capacity does not fit in 32 bits.
	newTokens := uint64(elapsed) * uint64(tb.config.Capacity) / uint64(tb.config.Period)
	consumed := newTokens * uint64(tb.config.Period) / uint64(tb.config.Capacity)

	tokens := uint64(state.Tokens) + newTokens
	if tokens > uint64(tb.config.Capacity) {
		tokens = uint64(tb.config.Capacity)
	}

	return &BucketState{
		Tokens: uint32(tokens),
		// consumed <= elapsed < 2^32, so the cast is exact. The addition
		// may wrap; Elapsed accounts for that on the next refill.
		LastRefillTick: state.LastRefillTick + Ticks(consumed),
		DroppedCalls:   state.DroppedCalls,
	}
}

// RetryAfter estimates the ticks until the bucket gains its next token:
// the per-token duration minus the time already accrued toward it, floored
// at zero in case more than a token's worth has elapsed since state was
// computed.
func (tb *TokenBucket) RetryAfter(state *BucketState, now Ticks) Ticks {
	timePerToken := tb.config.Period / Ticks(tb.config.Capacity)
	elapsed := Elapsed(now, state.LastRefillTick)
	if timePerToken > elapsed {
		return timePerToken - elapsed
	}
	return 0
}

// Elapsed computes now - last on the wrapping tick counter. When now reads
// numerically below last the counter has wrapped, and the true distance
// runs through the wrap point: (MaxTick - last) + now + 1. Written out as
// modular arithmetic rather than relying on unsigned overflow so the
// behavior is explicit.
func Elapsed(now, last Ticks) Ticks {
	if now < last {
		return (MaxTick - last) + now + 1
	}
	return now - last
}

// Package tickgate provides token bucket rate limiting driven by a
// wrapping monotonic tick counter.
//
// The core type is the Limiter: a fixed-capacity token bucket that
// throttles invocations of caller-supplied functions. Unlike limiters
// built directly on time.Time, a Limiter measures time through an injected
// tick source, a fixed-width unsigned counter that wraps at its maximum
// value. All elapsed-time arithmetic is wraparound-safe, and the refill
// bookkeeping preserves fractional progress toward the next token, so the
// configured rate holds exactly across counter wraps.
//
// # Quick start
//
// Five calls per second (1000 ticks = 1s under the default wall clock),
// dropping what exceeds the rate:
//
//	limiter, err := tickgate.New(1000, 5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	limiter.SetDroppedCallCallback(func(dropped uint32) {
//	    log.Printf("dropped %d calls", dropped)
//	})
//
//	if !limiter.CallOrDrop(sendTelemetry) {
//	    // over the rate; sendTelemetry was not invoked
//	}
//
// Or blocking until the rate allows, pacing a loop instead of dropping:
//
//	err := limiter.Call(func() error {
//	    return publishUpdate()
//	})
//
// Call admits every invocation eventually; CallContext bounds the wait
// with a context.
//
// # Time injection
//
// The tick source and the suspend primitive are injected at construction,
// which makes simulated-time testing deterministic:
//
//	limiter, err := tickgate.New(1000, 5,
//	    tickgate.WithTickSource(clock.Now),
//	    tickgate.WithSleep(clock.Sleep),
//	)
//
// The defaults map one tick to one millisecond of process uptime.
//
// # Keyed limiting and HTTP middleware
//
// NewRateLimiter builds a per-client limiter on top of Limiter, with YAML
// configuration, pluggable key extraction, and standard rate limit
// headers:
//
//	keyed, err := tickgate.NewRateLimiter(
//	    tickgate.WithDefaults(1000, 5),
//	    tickgate.WithKeyExtractor(tickgate.ExtractIPWithProxy()),
//	)
//	http.Handle("/api/", keyed.Middleware(apiHandler))
package tickgate

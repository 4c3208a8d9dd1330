// Package tickgate re-exports the library's main entry points from
// pkg/tickgate for convenience.
package tickgate

import (
	"github.com/yourusername/tickgate/pkg/tickgate"
)

// Re-export the core limiter surface.
type (
	Limiter     = tickgate.Limiter
	Option      = tickgate.Option
	Ticks       = tickgate.Ticks
	TickSource  = tickgate.TickSource
	SleepFunc   = tickgate.SleepFunc
	RateLimiter = tickgate.RateLimiter
	KeyedOption = tickgate.KeyedOption
	Decision    = tickgate.Decision
)

// New creates a single token bucket limiter.
var New = tickgate.New

// NewRateLimiter creates a keyed rate limiter.
var NewRateLimiter = tickgate.NewRateLimiter

package tickgate

import (
	"context"
	"time"

	"github.com/yourusername/tickgate/core"
)

// Ticks is the unit of the wrapping monotonic time source. Re-exported
// from core for convenience.
type Ticks = core.Ticks

// TickSource returns the current value of the monotonic tick counter. The
// counter wraps at core.MaxTick; it need not start at zero. The limiter's
// correctness depends on the source never going backward except via a full
// wraparound.
type TickSource func() Ticks

// SleepFunc suspends the caller for at least d ticks, or until ctx is
// done, whichever comes first. It returns ctx.Err() when interrupted.
type SleepFunc func(ctx context.Context, d Ticks) error

// TickDuration is the wall-clock length of one tick for the default
// WallTicks source and SleepTicks sleeper.
const TickDuration = time.Millisecond

var processStart = time.Now()

// WallTicks is the default TickSource: milliseconds of process uptime
// truncated to the 32-bit tick counter. It wraps roughly every 49.7 days,
// which the bucket arithmetic handles.
func WallTicks() Ticks {
	return Ticks(time.Since(processStart) / TickDuration)
}

// SleepTicks is the default SleepFunc. It blocks on a timer but gives up
// as soon as ctx is done, so blocking admissions stay cancellable.
func SleepTicks(ctx context.Context, d Ticks) error {
	if d == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(d) * TickDuration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

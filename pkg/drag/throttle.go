package drag

import "time"

// throttle admits one event per interval and drops the rest. The first
// event after a reset always passes.
type throttle struct {
	interval time.Duration
	last     time.Time
	primed   bool
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

func (t *throttle) allow(now time.Time) bool {
	if t.primed {
		// Timestamps older than the last processed one are dropped too
		if now.Sub(t.last) < t.interval {
			return false
		}
	}
	t.primed = true
	t.last = now
	return true
}

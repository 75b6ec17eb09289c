package game

import "time"

// TryConsume reports whether an action last performed at last may run again
// at now, given a fixed interval. When it may not, remaining is the exact
// wait until it may.
//
// The gate has no state of its own. A caller that gets allowed=true must
// set last = now in the same critical section that grants the reward.
func TryConsume(last time.Time, interval time.Duration, now time.Time) (bool, time.Duration) {
	next := last.Add(interval)
	if !now.Before(next) {
		return true, 0
	}
	return false, next.Sub(now)
}

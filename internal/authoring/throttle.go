package authoring

import "time"

// Throttle is a sliding-window limit on analyses for one editor session.
// It is used by the session's own goroutine only.
type Throttle struct {
	max    int
	window time.Duration
	times  []time.Time
	now    func() time.Time
}

// NewThrottle allows max analyses per window. max <= 0 disables it.
func NewThrottle(max int, window time.Duration) *Throttle {
	return &Throttle{max: max, window: window, now: time.Now}
}

// Allow records an analysis if the window has room. Otherwise it returns
// how long until the oldest one expires.
func (t *Throttle) Allow() (bool, time.Duration) {
	if t.max <= 0 {
		return true, 0
	}
	now := t.now()

	cutoff := now.Add(-t.window)
	kept := t.times[:0]
	for _, at := range t.times {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.times = kept

	if len(t.times) >= t.max {
		return false, t.times[0].Add(t.window).Sub(now)
	}
	t.times = append(t.times, now)
	return true, 0
}

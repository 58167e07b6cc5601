package loraduplex

import "time"

// GuardTimer is a one-shot countdown. A timer that was never started counts
// as elapsed.
type GuardTimer struct {
	now      func() time.Time
	start    time.Time
	duration time.Duration
	running  bool
}

// NewGuardTimer returns a stopped timer. now defaults to time.Now.
func NewGuardTimer(now func() time.Time) *GuardTimer {
	if now == nil {
		now = time.Now
	}
	return &GuardTimer{now: now}
}

// Start (re)starts the countdown for d.
func (t *GuardTimer) Start(d time.Duration) {
	t.start = t.now()
	t.duration = d
	t.running = true
}

// Elapsed reports whether the countdown has finished.
func (t *GuardTimer) Elapsed() bool {
	if !t.running {
		return true
	}
	if t.now().Sub(t.start) >= t.duration {
		t.running = false
		return true
	}
	return false
}

// Remaining returns the time left, zero once elapsed.
func (t *GuardTimer) Remaining() time.Duration {
	if t.Elapsed() {
		return 0
	}
	return t.duration - t.now().Sub(t.start)
}

// Duration returns the duration of the last start.
func (t *GuardTimer) Duration() time.Duration { return t.duration }

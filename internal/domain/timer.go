package domain

import "time"

// Clock returns the current instant
type Clock func() time.Time

// Timer is a wall-clock countdown with pause/resume.
//
// Remaining time is derived from the start instant on every read instead of
// being decremented per tick, so any number of pollers observe the same value.
type Timer struct {
	now       Clock
	startedAt time.Time
	duration  time.Duration
	started   bool
	paused    bool
	frozen    time.Duration
}

// NewTimer creates a stopped timer reading time from now (time.Now if nil)
func NewTimer(now Clock) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

// Start arms the timer for d and clears any paused state
func (t *Timer) Start(d time.Duration) {
	t.startedAt = t.now()
	t.duration = d
	t.started = true
	t.paused = false
	t.frozen = 0
}

// Remaining returns the whole seconds left, rounded up, never negative.
// While paused it returns the value frozen at pause time.
func (t *Timer) Remaining() int {
	return ceilSeconds(t.left())
}

// Pause freezes the remaining time. No-op if never started or already paused.
func (t *Timer) Pause() {
	if !t.started || t.paused {
		return
	}
	t.frozen = t.left()
	t.paused = true
}

// Resume restarts the countdown from the frozen remaining time. No-op if not paused.
func (t *Timer) Resume() {
	if !t.paused {
		return
	}
	t.Start(t.frozen)
}

// Reset clears all state; Remaining reports 0 afterwards
func (t *Timer) Reset() {
	*t = Timer{now: t.now}
}

// Started reports whether the timer has been armed since the last reset
func (t *Timer) Started() bool {
	return t.started
}

// Paused reports whether the timer is currently paused
func (t *Timer) Paused() bool {
	return t.paused
}

// Expired reports whether a running (not paused) timer has reached zero
func (t *Timer) Expired() bool {
	return t.started && !t.paused && t.left() <= 0
}

func (t *Timer) left() time.Duration {
	if !t.started {
		return 0
	}
	if t.paused {
		return t.frozen
	}
	left := t.duration - t.now().Sub(t.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

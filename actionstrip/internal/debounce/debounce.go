// Package debounce provides a single-slot debounce timer meant to be driven
// from one goroutine's select loop. Every Trigger cancels the pending fire
// and schedules a new one a full window later, so a burst collapses into one
// fire after the burst goes quiet.
package debounce

import "time"

// DefaultWindow is the quiet period used when none is configured.
const DefaultWindow = 200 * time.Millisecond

// Timer is not safe for concurrent use: the owning loop is the only caller.
type Timer struct {
	window  time.Duration
	timer   *time.Timer
	timerCh <-chan time.Time
}

// New creates an idle Timer. A non-positive window selects DefaultWindow.
func New(window time.Duration) *Timer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Timer{window: window}
}

// Window returns the quiet period.
func (t *Timer) Window() time.Duration {
	return t.window
}

// Trigger moves the timer to the pending state, replacing any pending fire.
func (t *Timer) Trigger() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.NewTimer(t.window)
	t.timerCh = t.timer.C
}

// C returns the channel that delivers the pending fire. It is nil while
// idle, so a select case on it blocks forever.
func (t *Timer) C() <-chan time.Time {
	return t.timerCh
}

// Fired returns the timer to idle after a value was received from C.
func (t *Timer) Fired() {
	t.timer = nil
	t.timerCh = nil
}

// Pending reports whether a fire is scheduled.
func (t *Timer) Pending() bool {
	return t.timer != nil
}

// Cancel drops any pending fire.
func (t *Timer) Cancel() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.Fired()
}

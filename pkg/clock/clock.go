// Package clock abstracts wall-clock time and timer scheduling so that
// decay windows, session timeouts and expiry timers can be driven
// deterministically in tests.
package clock

import "time"

// Timer is a scheduled callback that can be cancelled. Stop reports
// whether the callback was prevented from running; a false return means
// it already fired or was already stopped, so callers must still
// re-validate state inside the callback.
type Timer interface {
	Stop() bool
}

// Clock supplies the current time and schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// New returns a Clock backed by the system clock.
func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

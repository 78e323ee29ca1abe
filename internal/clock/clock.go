// Package clock abstracts wall time so schedulers can be driven
// deterministically in tests.
//
// Production code uses Real(). Tests use NewFake, whose Advance runs due
// callbacks synchronously on the calling goroutine in deadline order.
package clock

import "time"

// Clock is the time source used by every scheduler in timerbar.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once after d elapses. The returned Timer can
	// cancel the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop cancels the pending call. It reports whether the call was
// still pending.
func (timer *Timer) Stop() bool {
	if timer == nil || timer.stopFunc == nil {
		return false
	}
	return timer.stopFunc()
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stopFunc: timer.Stop}
}

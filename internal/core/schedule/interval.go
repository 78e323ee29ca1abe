// Package schedule provides the restart-safe periodic scheduler and the
// cancel-and-replace debouncer used by the timer engine.
package schedule

import (
	"sync"
	"time"

	"timerbar/internal/clock"
)

// Interval calls a function every period until stopped. At most one
// schedule is live per Interval no matter how often Start is called.
type Interval struct {
	mu         sync.Mutex
	clock      clock.Clock
	period     time.Duration
	fn         func(now time.Time)
	timer      *clock.Timer
	generation uint64
	running    bool
}

// NewInterval creates a stopped Interval. A non-positive period falls
// back to one second.
func NewInterval(source clock.Clock, period time.Duration, fn func(now time.Time)) *Interval {
	if period <= 0 {
		period = time.Second
	}
	return &Interval{
		clock:  source,
		period: period,
		fn:     fn,
	}
}

// Start cancels any live schedule and begins a new one. The first call
// happens one period from now.
func (interval *Interval) Start() {
	interval.mu.Lock()
	defer interval.mu.Unlock()
	interval.stopLocked()
	interval.running = true
	interval.armLocked(interval.generation)
}

// Stop cancels the schedule. Callbacks already in flight for an older
// generation are dropped.
func (interval *Interval) Stop() {
	interval.mu.Lock()
	defer interval.mu.Unlock()
	interval.stopLocked()
}

// Running reports whether a schedule is live.
func (interval *Interval) Running() bool {
	interval.mu.Lock()
	defer interval.mu.Unlock()
	return interval.running
}

// SetPeriod changes the period. A live schedule restarts with it.
func (interval *Interval) SetPeriod(period time.Duration) {
	if period <= 0 {
		return
	}
	interval.mu.Lock()
	defer interval.mu.Unlock()
	interval.period = period
	if interval.running {
		interval.stopLocked()
		interval.running = true
		interval.armLocked(interval.generation)
	}
}

func (interval *Interval) stopLocked() {
	interval.generation++
	interval.running = false
	if interval.timer != nil {
		interval.timer.Stop()
		interval.timer = nil
	}
}

func (interval *Interval) armLocked(generation uint64) {
	interval.timer = interval.clock.AfterFunc(interval.period, func() {
		interval.fire(generation)
	})
}

func (interval *Interval) fire(generation uint64) {
	interval.mu.Lock()
	if !interval.running || generation != interval.generation {
		interval.mu.Unlock()
		return
	}
	interval.armLocked(generation)
	fn := interval.fn
	interval.mu.Unlock()

	fn(interval.clock.Now())
}

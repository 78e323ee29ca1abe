package schedule

import (
	"sync"
	"time"

	"timerbar/internal/clock"
)

// Debouncer runs only the most recently scheduled function once the
// quiet period has passed without another Schedule call.
type Debouncer struct {
	mu         sync.Mutex
	clock      clock.Clock
	delay      time.Duration
	timer      *clock.Timer
	pending    func()
	generation uint64
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(source clock.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: source, delay: delay}
}

// Schedule replaces any pending call with fn.
func (debouncer *Debouncer) Schedule(fn func()) {
	debouncer.ScheduleAfter(debouncer.delay, fn)
}

// ScheduleAfter replaces any pending call with fn, run after delay.
func (debouncer *Debouncer) ScheduleAfter(delay time.Duration, fn func()) {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()

	debouncer.cancelLocked()
	debouncer.pending = fn
	generation := debouncer.generation
	debouncer.timer = debouncer.clock.AfterFunc(delay, func() {
		debouncer.run(generation)
	})
}

// Cancel drops the pending call. It reports whether one was pending.
func (debouncer *Debouncer) Cancel() bool {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()
	hadPending := debouncer.pending != nil
	debouncer.cancelLocked()
	return hadPending
}

// Flush runs the pending call now, on the calling goroutine. It
// reports whether anything ran.
func (debouncer *Debouncer) Flush() bool {
	debouncer.mu.Lock()
	fn := debouncer.pending
	debouncer.cancelLocked()
	debouncer.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a call is waiting for its quiet period.
func (debouncer *Debouncer) Pending() bool {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()
	return debouncer.pending != nil
}

// SetDelay changes the quiet period for future Schedule calls.
func (debouncer *Debouncer) SetDelay(delay time.Duration) {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()
	debouncer.delay = delay
}

func (debouncer *Debouncer) cancelLocked() {
	debouncer.generation++
	debouncer.pending = nil
	if debouncer.timer != nil {
		debouncer.timer.Stop()
		debouncer.timer = nil
	}
}

func (debouncer *Debouncer) run(generation uint64) {
	debouncer.mu.Lock()
	if generation != debouncer.generation || debouncer.pending == nil {
		debouncer.mu.Unlock()
		return
	}
	fn := debouncer.pending
	debouncer.pending = nil
	debouncer.timer = nil
	debouncer.mu.Unlock()

	fn()
}

package timer

import (
	"fmt"
	"sync"
	"time"

	"timerbar/internal/clock"
	"timerbar/internal/core/schedule"
)

// ZeroElapsedText is displayed when no timer runs.
const ZeroElapsedText = "0:00:00"

// Elapsed is one display recompute.
type Elapsed struct {
	Seconds int64
	Text    string
}

// ElapsedSeconds returns whole seconds from start to now, never negative.
func ElapsedSeconds(now, start time.Time) int64 {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / time.Second)
}

// FormatElapsed renders seconds as H:MM:SS with unpadded hours.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds%60)
}

// ElapsedAt computes the display value for start at now.
func ElapsedAt(now, start time.Time) Elapsed {
	seconds := ElapsedSeconds(now, start)
	return Elapsed{Seconds: seconds, Text: FormatElapsed(seconds)}
}

// Ticker recomputes the elapsed display every period from the absolute
// start time, so it never drifts.
type Ticker struct {
	// lifecycle serializes Start and Stop so the schedule and startedAt
	// change together.
	lifecycle sync.Mutex
	mu        sync.Mutex
	clock     clock.Clock
	interval  *schedule.Interval
	startedAt time.Time
	current   Elapsed
	onTick    func(Elapsed)
}

// NewTicker creates a stopped Ticker. onTick may be nil.
func NewTicker(source clock.Clock, period time.Duration, onTick func(Elapsed)) *Ticker {
	ticker := &Ticker{
		clock:   source,
		current: Elapsed{Text: ZeroElapsedText},
		onTick:  onTick,
	}
	ticker.interval = schedule.NewInterval(source, period, ticker.update)
	return ticker
}

// Start replaces any running schedule with one counting from startedAt
// and renders immediately.
func (ticker *Ticker) Start(startedAt time.Time) {
	ticker.lifecycle.Lock()
	ticker.mu.Lock()
	ticker.startedAt = startedAt
	ticker.mu.Unlock()
	ticker.interval.Start()
	ticker.lifecycle.Unlock()

	ticker.update(ticker.clock.Now())
}

// Stop cancels the schedule and resets the display.
func (ticker *Ticker) Stop() {
	ticker.lifecycle.Lock()
	ticker.interval.Stop()
	ticker.mu.Lock()
	wasSet := !ticker.startedAt.IsZero()
	ticker.startedAt = time.Time{}
	ticker.current = Elapsed{Text: ZeroElapsedText}
	onTick := ticker.onTick
	ticker.mu.Unlock()
	ticker.lifecycle.Unlock()

	if wasSet && onTick != nil {
		onTick(Elapsed{Text: ZeroElapsedText})
	}
}

// Running reports whether the schedule is live.
func (ticker *Ticker) Running() bool {
	return ticker.interval.Running()
}

// Current returns the last computed value.
func (ticker *Ticker) Current() Elapsed {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	return ticker.current
}

func (ticker *Ticker) update(now time.Time) {
	ticker.mu.Lock()
	if ticker.startedAt.IsZero() {
		ticker.mu.Unlock()
		return
	}
	elapsed := ElapsedAt(now, ticker.startedAt)
	ticker.current = elapsed
	onTick := ticker.onTick
	ticker.mu.Unlock()

	if onTick != nil {
		onTick(elapsed)
	}
}

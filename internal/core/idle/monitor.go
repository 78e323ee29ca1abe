package idle

import (
	"log/slog"
	"sync"
	"time"

	"timerbar/internal/clock"
	"timerbar/internal/core/model"
	"timerbar/internal/core/schedule"
	"timerbar/internal/observability"
)

// Offerer receives detected idle events.
type Offerer interface {
	Offer(event model.IdleEvent) bool
}

// MonitorConfig wires a Monitor.
type MonitorConfig struct {
	Clock   clock.Clock
	Tracker *Tracker
	Flow    Offerer
	// Running reports whether a timer is running right now.
	Running   func() bool
	Threshold time.Duration
	Interval  time.Duration
	Logger    *slog.Logger
}

// Monitor samples the Tracker every interval and offers one IdleEvent
// per idle episode to the Flow.
type Monitor struct {
	mu        sync.Mutex
	clock     clock.Clock
	tracker   *Tracker
	flow      Offerer
	running   func() bool
	threshold time.Duration
	enabled   bool
	reported  time.Time
	logger    *slog.Logger
	interval  *schedule.Interval
}

// NewMonitor creates a stopped, enabled Monitor.
func NewMonitor(config MonitorConfig) *Monitor {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Tracker == nil {
		config.Tracker = NewTracker(config.Clock.Now())
	}
	if config.Threshold <= 0 {
		config.Threshold = model.DefaultIdleThreshold
	}
	if config.Interval <= 0 {
		config.Interval = model.DefaultIdleCheckInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	monitor := &Monitor{
		clock:     config.Clock,
		tracker:   config.Tracker,
		flow:      config.Flow,
		running:   config.Running,
		threshold: config.Threshold,
		enabled:   true,
		logger:    config.Logger,
	}
	monitor.interval = schedule.NewInterval(config.Clock, config.Interval, func(now time.Time) {
		monitor.Check(now)
	})
	return monitor
}

// Tracker returns the activity tracker the monitor samples.
func (monitor *Monitor) Tracker() *Tracker {
	return monitor.tracker
}

// Attach feeds activity from source into the tracker until the returned
// function is called.
func (monitor *Monitor) Attach(source ActivitySource) func() {
	return source.Subscribe(monitor.tracker.Observe)
}

// Start begins periodic sampling, replacing any live schedule.
func (monitor *Monitor) Start() {
	monitor.interval.Start()
}

// Stop cancels sampling.
func (monitor *Monitor) Stop() {
	monitor.interval.Stop()
}

// Running reports whether sampling is scheduled.
func (monitor *Monitor) Running() bool {
	return monitor.interval.Running()
}

// SetThreshold changes the inactivity span that counts as idle.
func (monitor *Monitor) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		return
	}
	monitor.mu.Lock()
	monitor.threshold = threshold
	monitor.mu.Unlock()
}

// SetInterval changes the sampling period.
func (monitor *Monitor) SetInterval(period time.Duration) {
	monitor.interval.SetPeriod(period)
}

// SetEnabled turns detection on or off without stopping the schedule.
func (monitor *Monitor) SetEnabled(enabled bool) {
	monitor.mu.Lock()
	monitor.enabled = enabled
	monitor.mu.Unlock()
}

// Check runs one sample at now. It reports whether an event was offered.
func (monitor *Monitor) Check(now time.Time) bool {
	monitor.mu.Lock()
	enabled := monitor.enabled
	threshold := monitor.threshold
	reported := monitor.reported
	monitor.mu.Unlock()

	if !enabled || monitor.flow == nil || monitor.running == nil || !monitor.running() {
		return false
	}

	last := monitor.tracker.Last()
	idleFor := now.Sub(last)
	if idleFor < threshold || last.Equal(reported) {
		return false
	}

	event := model.IdleEvent{
		IdleSeconds:  int64(idleFor / time.Second),
		DetectedAt:   now,
		LastActivity: last,
	}
	if !monitor.flow.Offer(event) {
		return false
	}

	monitor.mu.Lock()
	monitor.reported = last
	monitor.mu.Unlock()

	observability.RecordIdleEvent()
	monitor.logger.Info("idle detected", "idle_seconds", event.IdleSeconds)
	return true
}

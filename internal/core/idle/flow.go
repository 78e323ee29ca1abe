package idle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"timerbar/internal/clock"
	"timerbar/internal/core/model"
	"timerbar/internal/core/timer"
	"timerbar/internal/observability"
)

// ErrNotPending is returned by a resolution when no idle prompt is visible.
var ErrNotPending = errors.New("no idle resolution pending")

// Resolution names, used in logs and metrics.
const (
	ResolutionKeep        = "keep"
	ResolutionDiscard     = "discard"
	ResolutionStopAndKeep = "stop_and_keep"
)

// Stopper is the part of timer.Store the flow drives.
type Stopper interface {
	State() model.TimerUIState
	Stop(ctx context.Context) error
	StopWithDuration(ctx context.Context, hours float64) error
}

// StartTimestamps fetches the server-side start of a timer.
type StartTimestamps interface {
	GetTimerStartTimestamp(ctx context.Context, timerID int64) (time.Time, error)
}

// FlowConfig wires a Flow.
type FlowConfig struct {
	Stopper    Stopper
	Timestamps StartTimestamps
	Tracker    *Tracker
	Clock      clock.Clock
	Logger     *slog.Logger
	// OnChange is called outside the lock whenever the prompt is shown
	// or hidden. The event is the zero value when hidden.
	OnChange func(visible bool, event model.IdleEvent)
}

// Flow is the Hidden/Visible idle prompt state machine.
type Flow struct {
	mu         sync.Mutex
	stopper    Stopper
	timestamps StartTimestamps
	tracker    *Tracker
	clock      clock.Clock
	logger     *slog.Logger
	onChange   func(bool, model.IdleEvent)
	visible    bool
	event      model.IdleEvent
}

// NewFlow creates a hidden Flow.
func NewFlow(config FlowConfig) *Flow {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Flow{
		stopper:    config.Stopper,
		timestamps: config.Timestamps,
		tracker:    config.Tracker,
		clock:      config.Clock,
		logger:     config.Logger,
		onChange:   config.OnChange,
	}
}

// Offer shows the prompt for event. It reports false when a prompt is
// already visible.
func (flow *Flow) Offer(event model.IdleEvent) bool {
	flow.mu.Lock()
	if flow.visible {
		flow.mu.Unlock()
		return false
	}
	flow.visible = true
	flow.event = event
	onChange := flow.onChange
	flow.mu.Unlock()

	if onChange != nil {
		onChange(true, event)
	}
	return true
}

// Pending returns the event being resolved, if any.
func (flow *Flow) Pending() (model.IdleEvent, bool) {
	flow.mu.Lock()
	defer flow.mu.Unlock()
	return flow.event, flow.visible
}

// Visible reports whether the prompt is showing.
func (flow *Flow) Visible() bool {
	flow.mu.Lock()
	defer flow.mu.Unlock()
	return flow.visible
}

// Keep hides the prompt and restarts the idle window from now. The
// timer keeps running and no remote call is made.
func (flow *Flow) Keep() error {
	if _, ok := flow.hide(); !ok {
		return ErrNotPending
	}
	if flow.tracker != nil {
		flow.tracker.Touch(flow.clock.Now())
	}
	observability.RecordIdleResolution(ResolutionKeep)
	flow.logger.Info("idle time kept")
	return nil
}

// DiscardIdle stops the timer and records only the time up to the last
// activity seen when the idle episode was detected. If the start stamp
// cannot be fetched the timer is stopped with the server's duration.
// When the stop itself fails the prompt is offered again.
func (flow *Flow) DiscardIdle(ctx context.Context) error {
	event, ok := flow.hide()
	if !ok {
		return ErrNotPending
	}
	observability.RecordIdleResolution(ResolutionDiscard)

	timerID := flow.stopper.State().RunningTimerID
	if timerID == 0 || flow.timestamps == nil {
		return flow.reofferOnFailure(event, flow.stopper.Stop(ctx))
	}

	startedAt, err := flow.timestamps.GetTimerStartTimestamp(ctx, timerID)
	if err != nil {
		wrapped := &timer.NonCriticalRemoteError{Operation: timer.OpGetTimerStart, Err: err}
		observability.RecordNonCriticalFailure(timer.OpGetTimerStart)
		flow.logger.Warn("discard idle: falling back to plain stop", "timer_id", timerID, "error", wrapped)
		return flow.reofferOnFailure(event, flow.stopper.Stop(ctx))
	}

	hours := DiscardHours(startedAt, event.LastActivity)
	flow.logger.Info("discarding idle time", "timer_id", timerID, "hours", hours)
	if err := flow.stopper.StopWithDuration(ctx, hours); err != nil {
		return flow.reofferOnFailure(event, fmt.Errorf("discard idle: %w", err))
	}
	return nil
}

// StopAndKeep stops the timer keeping the idle time in its duration.
// When the stop fails the prompt is offered again.
func (flow *Flow) StopAndKeep(ctx context.Context) error {
	event, ok := flow.hide()
	if !ok {
		return ErrNotPending
	}
	observability.RecordIdleResolution(ResolutionStopAndKeep)
	return flow.reofferOnFailure(event, flow.stopper.Stop(ctx))
}

// reofferOnFailure shows event again when err is a failed stop call, so
// the still-running timer keeps its pending resolution.
func (flow *Flow) reofferOnFailure(event model.IdleEvent, err error) error {
	var remote *timer.RemoteCallError
	if errors.As(err, &remote) && flow.stopper.State().IsRunning {
		flow.logger.Warn("idle resolution failed, prompting again", "operation", remote.Operation, "error", remote.Err)
		flow.Offer(event)
	}
	return err
}

// Reset hides the prompt without resolving it.
func (flow *Flow) Reset() {
	flow.hide()
}

func (flow *Flow) hide() (model.IdleEvent, bool) {
	flow.mu.Lock()
	if !flow.visible {
		flow.mu.Unlock()
		return model.IdleEvent{}, false
	}
	event := flow.event
	flow.visible = false
	flow.event = model.IdleEvent{}
	onChange := flow.onChange
	flow.mu.Unlock()

	if onChange != nil {
		onChange(false, model.IdleEvent{})
	}
	return event, true
}

// DiscardHours is the non-idle part of a timer in hours, never negative.
func DiscardHours(startedAt, lastActivity time.Time) float64 {
	hours := lastActivity.Sub(startedAt).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// FormatIdle renders an idle span the way the prompt shows it.
func FormatIdle(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	if minutes := seconds / 60; minutes > 0 {
		return fmt.Sprintf("%d minute(s)", minutes)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}

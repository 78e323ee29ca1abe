package idle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/model"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/core/timer"
	"timerbar/internal/gateway/memory"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock   *clock.Fake
	gateway *memory.Gateway
	store   *timer.Store
	tracker *idle.Tracker
	flow    *idle.Flow
	monitor *idle.Monitor
	shown   []model.IdleEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clock: clock.NewFake(t0)}
	f.gateway = memory.NewSeeded(f.clock)
	f.store = timer.NewStore(timer.StoreConfig{Gateway: f.gateway, Bus: syncbus.New(), Clock: f.clock})
	t.Cleanup(f.store.Close)
	f.tracker = idle.NewTracker(t0)
	f.flow = idle.NewFlow(idle.FlowConfig{
		Stopper:    f.store,
		Timestamps: f.gateway,
		Tracker:    f.tracker,
		Clock:      f.clock,
		OnChange: func(visible bool, event model.IdleEvent) {
			if visible {
				f.shown = append(f.shown, event)
			}
		},
	})
	f.monitor = idle.NewMonitor(idle.MonitorConfig{
		Clock:   f.clock,
		Tracker: f.tracker,
		Flow:    f.flow,
		Running: func() bool { return f.store.State().IsRunning },
	})
	t.Cleanup(f.monitor.Stop)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	_, err := f.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
}

func TestIdleDetectedOnFirstCheckPastThreshold(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()

	f.clock.Advance(599 * time.Second)
	require.Empty(t, f.shown)

	f.clock.Advance(time.Second)
	require.Len(t, f.shown, 1)
	require.Equal(t, int64(600), f.shown[0].IdleSeconds)
	require.Equal(t, t0, f.shown[0].LastActivity)
	require.True(t, f.flow.Visible())
}

func TestIdleDetectionWindowWithOffsetSchedule(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.clock.Advance(17 * time.Second)
	f.monitor.Start()

	f.clock.Advance(20 * time.Minute)

	require.Len(t, f.shown, 1)
	detected := f.shown[0].DetectedAt.Sub(t0)
	require.GreaterOrEqual(t, detected, 600*time.Second)
	require.Less(t, detected, 630*time.Second)
}

func TestIdleEmittedOncePerEpisode(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()

	f.clock.Advance(time.Hour)
	require.Len(t, f.shown, 1)

	// Activity while the prompt is open does not raise a second prompt.
	f.tracker.Touch(f.clock.Now())
	f.clock.Advance(time.Hour)
	require.Len(t, f.shown, 1)
}

func TestKeepStartsNewEpisode(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(600 * time.Second)
	require.Len(t, f.shown, 1)

	require.NoError(t, f.flow.Keep())
	require.False(t, f.flow.Visible())
	require.Equal(t, f.clock.Now(), f.tracker.Last())
	require.True(t, f.store.State().IsRunning)
	require.Equal(t, 0, f.gateway.Calls(timer.OpStopRunningTimer))

	f.clock.Advance(599 * time.Second)
	require.Len(t, f.shown, 1)
	f.clock.Advance(30 * time.Second)
	require.Len(t, f.shown, 2)
}

func TestNoDetectionWithoutRunningTimer(t *testing.T) {
	f := newFixture(t)
	f.monitor.Start()

	f.clock.Advance(time.Hour)

	require.Empty(t, f.shown)
}

func TestDisabledMonitorStaysQuiet(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.SetEnabled(false)
	f.monitor.Start()

	f.clock.Advance(time.Hour)

	require.Empty(t, f.shown)
}

func TestMonitorRestartKeepsSingleSchedule(t *testing.T) {
	f := newFixture(t)
	f.monitor.Start()
	f.monitor.Start()

	require.Equal(t, 1, f.clock.Pending())
	f.monitor.Stop()
	require.Equal(t, 0, f.clock.Pending())
}

func TestDiscardIdleRecordsDurationUpToLastActivity(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(500 * time.Second)
	f.tracker.Touch(f.clock.Now())
	f.clock.Advance(640 * time.Second)
	require.Len(t, f.shown, 1)
	require.Equal(t, t0.Add(500*time.Second), f.shown[0].LastActivity)

	// Later activity does not move the stamp the discard uses.
	f.tracker.Touch(f.clock.Now())

	require.NoError(t, f.flow.DiscardIdle(context.Background()))

	require.False(t, f.flow.Visible())
	require.False(t, f.store.State().IsRunning)
	entries := f.gateway.Entries()
	require.Len(t, entries, 1)
	require.InDelta(t, 500.0/3600.0, entries[0].DurationHours, 1e-9)
}

func TestDiscardIdleStopsWhenAdjustmentFails(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(600 * time.Second)
	f.gateway.Fail(timer.OpAdjustDuration, errors.New("write denied"))

	require.NoError(t, f.flow.DiscardIdle(context.Background()))

	require.False(t, f.store.State().IsRunning)
	require.Equal(t, 1, f.gateway.Calls(timer.OpAdjustDuration))
}

func TestDiscardIdleFallsBackToPlainStop(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(600 * time.Second)
	f.gateway.Fail(timer.OpGetTimerStart, errors.New("timeout"))

	require.NoError(t, f.flow.DiscardIdle(context.Background()))

	require.False(t, f.store.State().IsRunning)
	require.Equal(t, 0, f.gateway.Calls(timer.OpAdjustDuration))
	require.InDelta(t, 600.0/3600.0, f.gateway.Entries()[0].DurationHours, 1e-9)
}

func TestStopAndKeepKeepsIdleTime(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(900 * time.Second)

	require.NoError(t, f.flow.StopAndKeep(context.Background()))

	require.False(t, f.store.State().IsRunning)
	require.Equal(t, 0, f.gateway.Calls(timer.OpAdjustDuration))
	require.InDelta(t, 0.25, f.gateway.Entries()[0].DurationHours, 1e-9)
}

func TestFailedDiscardPromptsAgain(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(600 * time.Second)
	require.Len(t, f.shown, 1)
	f.gateway.Fail(timer.OpStopRunningTimer, errors.New("boom"))

	err := f.flow.DiscardIdle(context.Background())

	var remote *timer.RemoteCallError
	require.ErrorAs(t, err, &remote)
	require.True(t, f.store.State().IsRunning)
	require.True(t, f.flow.Visible())
	require.Len(t, f.shown, 2)
	require.Equal(t, f.shown[0], f.shown[1])

	f.gateway.Fail(timer.OpStopRunningTimer, nil)
	require.NoError(t, f.flow.DiscardIdle(context.Background()))
	require.False(t, f.store.State().IsRunning)
	require.InDelta(t, 0.0, f.gateway.Entries()[0].DurationHours, 1e-9)
}

func TestFailedStopAndKeepPromptsAgain(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.monitor.Start()
	f.clock.Advance(600 * time.Second)
	f.gateway.Fail(timer.OpStopRunningTimer, errors.New("boom"))

	require.Error(t, f.flow.StopAndKeep(context.Background()))
	require.True(t, f.flow.Visible())

	// The monitor does not stack a second prompt on the re-offered one.
	f.clock.Advance(time.Hour)
	require.Len(t, f.shown, 2)

	f.gateway.Fail(timer.OpStopRunningTimer, nil)
	require.NoError(t, f.flow.StopAndKeep(context.Background()))
	require.False(t, f.flow.Visible())
	require.False(t, f.store.State().IsRunning)
}

func TestResolutionsRequireVisiblePrompt(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.flow.Keep(), idle.ErrNotPending)
	require.ErrorIs(t, f.flow.DiscardIdle(context.Background()), idle.ErrNotPending)
	require.ErrorIs(t, f.flow.StopAndKeep(context.Background()), idle.ErrNotPending)
}

func TestOfferRejectedWhileVisible(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.flow.Offer(model.IdleEvent{IdleSeconds: 600}))
	require.False(t, f.flow.Offer(model.IdleEvent{IdleSeconds: 630}))
	event, ok := f.flow.Pending()
	require.True(t, ok)
	require.Equal(t, int64(600), event.IdleSeconds)

	f.flow.Reset()
	_, ok = f.flow.Pending()
	require.False(t, ok)
}

func TestManualSourceFeedsTracker(t *testing.T) {
	f := newFixture(t)
	source := idle.NewManualSource()
	detach := f.monitor.Attach(source)

	at := t0.Add(42 * time.Second)
	source.Emit(model.Activity{Kind: model.ActivityKeyPress, At: at})
	require.Equal(t, at, f.tracker.Last())

	detach()
	detach()
	source.Emit(model.Activity{Kind: model.ActivityClick, At: at.Add(time.Minute)})
	require.Equal(t, at, f.tracker.Last())
}

func TestDiscardHoursNeverNegative(t *testing.T) {
	require.Zero(t, idle.DiscardHours(t0, t0.Add(-time.Minute)))
	require.InDelta(t, 500.0/3600.0, idle.DiscardHours(t0, t0.Add(500*time.Second)), 1e-12)
}

func TestFormatIdle(t *testing.T) {
	require.Equal(t, "45 second(s)", idle.FormatIdle(45))
	require.Equal(t, "1 minute(s)", idle.FormatIdle(60))
	require.Equal(t, "10 minute(s)", idle.FormatIdle(659))
	require.Equal(t, "0 second(s)", idle.FormatIdle(-3))
}

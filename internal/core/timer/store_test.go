package timer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timerbar/internal/clock"
	"timerbar/internal/core/model"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/core/timer"
	"timerbar/internal/gateway/memory"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock   *clock.Fake
	gateway *memory.Gateway
	bus     *syncbus.Bus
	store   *timer.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := clock.NewFake(epoch)
	gateway := memory.NewSeeded(fake)
	bus := syncbus.New()
	store := timer.NewStore(timer.StoreConfig{
		Gateway:       gateway,
		Bus:           bus,
		Clock:         fake,
		Origin:        "header",
		DebounceDelay: time.Second,
	})
	t.Cleanup(store.Close)
	return &harness{clock: fake, gateway: gateway, bus: bus, store: store}
}

func (h *harness) record(t *testing.T) *[]model.SyncMessage {
	t.Helper()
	var messages []model.SyncMessage
	unsubscribe := h.bus.Subscribe(func(message model.SyncMessage) {
		messages = append(messages, message)
	})
	t.Cleanup(unsubscribe)
	return &messages
}

func stringPtr(value string) *string { return &value }

func int64Ptr(value int64) *int64 { return &value }

func TestStartWithoutProjectFailsValidation(t *testing.T) {
	h := newHarness(t)
	messages := h.record(t)

	_, err := h.store.Start(context.Background(), model.StartRequest{Description: "x"})

	require.Error(t, err)
	require.True(t, timer.IsValidation(err))
	require.Equal(t, 0, h.gateway.Calls(timer.OpStartTimer))
	require.Empty(t, *messages)
	require.False(t, h.store.State().IsRunning)
}

func TestStartSetsStateAndBroadcastsOnce(t *testing.T) {
	h := newHarness(t)
	messages := h.record(t)

	record, err := h.store.Start(context.Background(), model.StartRequest{Description: "Write report", ProjectID: 7})
	require.NoError(t, err)

	state := h.store.State()
	require.True(t, state.IsRunning)
	require.Equal(t, record.ID, state.RunningTimerID)
	require.Equal(t, "Internal", state.ProjectName)
	require.Equal(t, epoch, state.StartedAt)

	require.Len(t, *messages, 1)
	message := (*messages)[0]
	require.Equal(t, model.SyncStart, message.Action)
	require.Equal(t, "header", message.Origin)
	require.NotNil(t, message.Record)
	require.Equal(t, record.ID, message.Record.ID)
}

func TestStartWithEmptyDescriptionSendsPlaceholder(t *testing.T) {
	h := newHarness(t)

	record, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})

	require.NoError(t, err)
	require.Equal(t, "/", record.Description)
}

func TestStartRemoteFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	messages := h.record(t)
	h.gateway.Fail(timer.OpStartTimer, errors.New("server down"))

	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})

	require.True(t, timer.IsRemote(err))
	require.False(t, h.store.State().IsRunning)
	require.Empty(t, *messages)
}

func TestStateElapsedFollowsClock(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)

	h.clock.Advance(5 * time.Second)

	state := h.store.State()
	require.Equal(t, int64(5), state.ElapsedSeconds)
	require.Equal(t, "0:00:05", timer.FormatElapsed(state.ElapsedSeconds))
}

func TestLoadIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_, err := h.gateway.StartTimer(context.Background(), model.StartRequest{Description: "Review", ProjectID: 11})
	require.NoError(t, err)

	first, err := h.store.Load(context.Background())
	require.NoError(t, err)
	second, err := h.store.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.True(t, second.IsRunning)
	require.Equal(t, "Customer Portal", second.ProjectName)
}

func TestLoadWithNothingRunningReturnsEmptyState(t *testing.T) {
	h := newHarness(t)

	state, err := h.store.Load(context.Background())

	require.NoError(t, err)
	require.Equal(t, model.TimerUIState{}, state)
}

func TestLoadFailureResetsToEmpty(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	h.gateway.Fail(timer.OpGetRunningTimer, errors.New("timeout"))

	state, err := h.store.Load(context.Background())

	require.True(t, timer.IsRemote(err))
	require.False(t, state.IsRunning)
	require.False(t, h.store.State().IsRunning)
}

func TestStopClearsStateAndBroadcastsOnce(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	messages := h.record(t)
	h.clock.Advance(90 * time.Minute)

	require.NoError(t, h.store.Stop(context.Background()))

	require.Equal(t, model.TimerUIState{}, h.store.State())
	require.Len(t, *messages, 1)
	require.Equal(t, model.SyncStop, (*messages)[0].Action)
	require.Nil(t, (*messages)[0].Record)

	entries := h.gateway.Entries()
	require.Len(t, entries, 1)
	require.False(t, entries[0].Running)
	require.InDelta(t, 1.5, entries[0].DurationHours, 1e-9)
}

func TestStopWhenServerHasNothingStillClears(t *testing.T) {
	h := newHarness(t)
	messages := h.record(t)

	require.NoError(t, h.store.Stop(context.Background()))

	require.False(t, h.store.State().IsRunning)
	require.Len(t, *messages, 1)
}

func TestStopRemoteFailureKeepsRunning(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	messages := h.record(t)
	h.gateway.Fail(timer.OpStopRunningTimer, errors.New("server down"))

	err = h.store.Stop(context.Background())

	require.True(t, timer.IsRemote(err))
	require.True(t, h.store.State().IsRunning)
	require.Empty(t, *messages)
}

func TestStopWithDurationOverwritesRecordedHours(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	h.clock.Advance(time.Hour)

	require.NoError(t, h.store.StopWithDuration(context.Background(), 0.25))

	entries := h.gateway.Entries()
	require.InDelta(t, 0.25, entries[0].DurationHours, 1e-9)
	require.Equal(t, 1, h.gateway.Calls(timer.OpAdjustDuration))
}

func TestStopWithDurationAdjustFailureStillStops(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	messages := h.record(t)
	h.gateway.Fail(timer.OpAdjustDuration, errors.New("write denied"))

	require.NoError(t, h.store.StopWithDuration(context.Background(), 0.1))

	require.False(t, h.store.State().IsRunning)
	require.Len(t, *messages, 1)
	require.Equal(t, model.SyncStop, (*messages)[0].Action)
}

func TestStartWhileRunningReplacesTimer(t *testing.T) {
	h := newHarness(t)
	first, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	second, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 11})
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, second.ID, h.store.State().RunningTimerID)
	running := 0
	for _, entry := range h.gateway.Entries() {
		if entry.Running {
			running++
		}
	}
	require.Equal(t, 1, running)
}

func TestEditWithoutRunningTimerIsRejected(t *testing.T) {
	h := newHarness(t)

	require.False(t, h.store.Edit(model.TimerUpdate{Description: stringPtr("x")}))
	require.False(t, h.store.EditPending())
}

func TestEditDebouncesAndLastValueWins(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{Description: "a", ProjectID: 7})
	require.NoError(t, err)

	require.True(t, h.store.Edit(model.TimerUpdate{Description: stringPtr("ab")}))
	h.clock.Advance(500 * time.Millisecond)
	require.True(t, h.store.Edit(model.TimerUpdate{Description: stringPtr("abc")}))
	h.clock.Advance(500 * time.Millisecond)

	require.Equal(t, "abc", h.store.State().Description)
	require.Equal(t, 0, h.gateway.Calls(timer.OpUpdateRunningTimer))
	require.True(t, h.store.EditPending())

	h.clock.Advance(500 * time.Millisecond)

	require.Equal(t, 1, h.gateway.Calls(timer.OpUpdateRunningTimer))
	require.False(t, h.store.EditPending())
	running, err := h.gateway.GetRunningTimer(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", running.Description)
}

func TestEditProjectChangeClearsTask(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7, TaskID: 70})
	require.NoError(t, err)

	h.store.Edit(model.TimerUpdate{ProjectID: int64Ptr(11), ProjectName: "Customer Portal"})

	state := h.store.State()
	require.Equal(t, int64(11), state.ProjectID)
	require.Zero(t, state.TaskID)
	require.Empty(t, state.TaskName)

	h.clock.Advance(time.Second)
	running, err := h.gateway.GetRunningTimer(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(11), running.ProjectID)
	require.Zero(t, running.TaskID)
}

func TestStopFlushesPendingEdit(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{Description: "a", ProjectID: 7})
	require.NoError(t, err)
	h.store.Edit(model.TimerUpdate{Description: stringPtr("final")})

	require.NoError(t, h.store.Stop(context.Background()))

	require.Equal(t, 1, h.gateway.Calls(timer.OpUpdateRunningTimer))
	require.Equal(t, "final", h.gateway.Entries()[0].Record.Description)
}

func TestCloseDropsPendingEdit(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	h.store.Edit(model.TimerUpdate{Description: stringPtr("never sent")})

	h.store.Close()
	h.clock.Advance(5 * time.Second)

	require.Equal(t, 0, h.gateway.Calls(timer.OpUpdateRunningTimer))
	require.Equal(t, 0, h.clock.Pending())
}

func TestFailedDebouncedWriteKeepsLocalEdit(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	h.gateway.Fail(timer.OpUpdateRunningTimer, errors.New("conflict"))

	h.store.Edit(model.TimerUpdate{Description: stringPtr("local")})
	h.clock.Advance(time.Second)

	require.Equal(t, "local", h.store.State().Description)
	require.True(t, h.store.State().IsRunning)
}

func TestLoadKeepsPendingEditForSameTimer(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Start(context.Background(), model.StartRequest{Description: "server", ProjectID: 7})
	require.NoError(t, err)
	h.store.Edit(model.TimerUpdate{Description: stringPtr("typing")})

	state, err := h.store.Load(context.Background())

	require.NoError(t, err)
	require.Equal(t, "typing", state.Description)
	require.True(t, h.store.EditPending())
}

func TestStoresShareStateThroughBusAndGateway(t *testing.T) {
	h := newHarness(t)
	list := timer.NewStore(timer.StoreConfig{Gateway: h.gateway, Bus: h.bus, Clock: h.clock, Origin: "list"})
	t.Cleanup(list.Close)

	var reloads int
	h.bus.Subscribe(func(message model.SyncMessage) {
		if message.Origin == list.Origin() {
			return
		}
		reloads++
		_, err := list.Load(context.Background())
		require.NoError(t, err)
	})

	_, err := h.store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	require.True(t, list.State().IsRunning)

	require.NoError(t, h.store.Stop(context.Background()))
	require.False(t, list.State().IsRunning)
	require.Equal(t, 2, reloads)
}

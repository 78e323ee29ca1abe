// Package timer holds the per-surface timer state store, the elapsed
// display ticker and the remote gateway port they depend on.
package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"timerbar/internal/clock"
	"timerbar/internal/core/model"
	"timerbar/internal/core/schedule"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/observability"
)

const emptyDescription = "/"

// StoreConfig wires a Store.
type StoreConfig struct {
	Gateway Gateway
	Bus     *syncbus.Bus
	Clock   clock.Clock
	Logger  *slog.Logger
	// Origin tags this store's broadcasts. A random UUID when empty.
	Origin        string
	DebounceDelay time.Duration
	WriteTimeout  time.Duration
}

// Store is the single writer of one surface's TimerUIState. It never
// holds its lock across a gateway call or a broadcast.
type Store struct {
	mu           sync.Mutex
	gateway      Gateway
	bus          *syncbus.Bus
	clock        clock.Clock
	logger       *slog.Logger
	origin       string
	writeTimeout time.Duration
	writes       *schedule.Debouncer
	state        model.TimerUIState
	pendingEdit  model.TimerUpdate
}

// NewStore creates an empty Store.
func NewStore(config StoreConfig) *Store {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Origin == "" {
		config.Origin = uuid.NewString()
	}
	if config.DebounceDelay < model.MinDebounceDelay {
		config.DebounceDelay = model.DefaultDebounceDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = model.DefaultWriteTimeout
	}
	return &Store{
		gateway:      config.Gateway,
		bus:          config.Bus,
		clock:        config.Clock,
		logger:       config.Logger.With("origin", config.Origin),
		origin:       config.Origin,
		writeTimeout: config.WriteTimeout,
		writes:       schedule.NewDebouncer(config.Clock, config.DebounceDelay),
	}
}

// Origin returns the identifier stamped on this store's broadcasts.
func (store *Store) Origin() string {
	return store.origin
}

// State returns a copy of the current state with ElapsedSeconds
// computed for now.
func (store *Store) State() model.TimerUIState {
	store.mu.Lock()
	state := store.state.Clone()
	store.mu.Unlock()
	if state.IsRunning {
		state.ElapsedSeconds = ElapsedSeconds(store.clock.Now(), state.StartedAt)
	}
	return state
}

// Load replaces the state with whatever the server reports as running.
// A failed fetch is treated as "no running timer".
func (store *Store) Load(ctx context.Context) (model.TimerUIState, error) {
	record, err := store.gateway.GetRunningTimer(ctx)
	if err != nil {
		store.logger.Error("load running timer", "error", err)
		store.mu.Lock()
		store.state = model.TimerUIState{}
		store.mu.Unlock()
		return model.TimerUIState{}, &RemoteCallError{Operation: OpGetRunningTimer, Err: err}
	}

	next := model.TimerUIState{}
	if record != nil {
		next = model.StateFromRecord(*record)
	}

	store.mu.Lock()
	if next.IsRunning && next.RunningTimerID == store.state.RunningTimerID && !store.pendingEdit.Empty() {
		applyUpdate(&next, store.pendingEdit)
	}
	store.state = next
	store.mu.Unlock()

	return store.State(), nil
}

// Start starts a timer on the server. A missing project fails
// validation without any remote call.
func (store *Store) Start(ctx context.Context, request model.StartRequest) (model.TimerRecord, error) {
	if request.ProjectID == 0 {
		observability.RecordStart("invalid")
		return model.TimerRecord{}, &ValidationError{Field: "project", Message: "select a project before starting the timer"}
	}
	if request.Description == "" {
		request.Description = emptyDescription
	}

	store.writes.Flush()

	record, err := store.gateway.StartTimer(ctx, request)
	if err != nil {
		observability.RecordStart("remote_error")
		return model.TimerRecord{}, &RemoteCallError{Operation: OpStartTimer, Err: err}
	}
	observability.RecordStart("ok")

	store.mu.Lock()
	store.state = model.StateFromRecord(record)
	store.pendingEdit = model.TimerUpdate{}
	store.mu.Unlock()

	broadcastRecord := record.Clone()
	store.broadcast(model.SyncMessage{Action: model.SyncStart, Record: &broadcastRecord})
	store.logger.Info("timer started", "timer_id", record.ID, "project_id", record.ProjectID)
	return record.Clone(), nil
}

// Stop stops the running timer, keeping the server-computed duration.
func (store *Store) Stop(ctx context.Context) error {
	return store.stop(ctx, nil)
}

// StopWithDuration stops the running timer and then overwrites its
// recorded duration. A failed overwrite is logged and does not fail
// the stop.
func (store *Store) StopWithDuration(ctx context.Context, hours float64) error {
	return store.stop(ctx, &hours)
}

func (store *Store) stop(ctx context.Context, overrideHours *float64) error {
	store.writes.Flush()

	store.mu.Lock()
	timerID := store.state.RunningTimerID
	store.mu.Unlock()

	result, err := store.gateway.StopRunningTimer(ctx)
	if err != nil && !errors.Is(err, ErrNoRunningTimer) {
		observability.RecordStop("remote_error")
		return &RemoteCallError{Operation: OpStopRunningTimer, Err: err}
	}
	observability.RecordStop("ok")
	if result.TimerID != 0 {
		timerID = result.TimerID
	}

	if overrideHours != nil && timerID != 0 {
		if err := store.gateway.AdjustDuration(ctx, timerID, *overrideHours); err != nil {
			store.nonCritical(OpAdjustDuration, err)
		}
	}

	store.mu.Lock()
	store.state = model.TimerUIState{}
	store.pendingEdit = model.TimerUpdate{}
	store.mu.Unlock()

	store.broadcast(model.SyncMessage{Action: model.SyncStop})
	store.logger.Info("timer stopped", "timer_id", timerID)
	return nil
}

// Edit applies update to the running timer locally and schedules a
// debounced write. Successive edits merge; the last value of each field
// wins. It reports false when no timer is running.
func (store *Store) Edit(update model.TimerUpdate) bool {
	if update.Empty() {
		return false
	}
	store.mu.Lock()
	if !store.state.IsRunning {
		store.mu.Unlock()
		return false
	}
	applyUpdate(&store.state, update)
	store.pendingEdit = store.pendingEdit.Merge(update)
	store.mu.Unlock()

	store.writes.Schedule(store.flushEdit)
	return true
}

// EditPending reports whether a debounced write is waiting.
func (store *Store) EditPending() bool {
	return store.writes.Pending()
}

// SetDebounceDelay changes the quiet period for future edits.
func (store *Store) SetDebounceDelay(delay time.Duration) {
	if delay < model.MinDebounceDelay {
		delay = model.MinDebounceDelay
	}
	store.writes.SetDelay(delay)
}

// Close cancels any pending debounced write.
func (store *Store) Close() {
	if store.writes.Cancel() {
		store.logger.Debug("dropped pending timer edit on close")
	}
	store.mu.Lock()
	store.pendingEdit = model.TimerUpdate{}
	store.mu.Unlock()
}

func (store *Store) flushEdit() {
	store.mu.Lock()
	update := store.pendingEdit
	store.pendingEdit = model.TimerUpdate{}
	store.mu.Unlock()
	if update.Empty() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), store.writeTimeout)
	defer cancel()

	record, err := store.gateway.UpdateRunningTimer(ctx, update)
	if err != nil {
		observability.RecordDebouncedWrite("error")
		store.nonCritical(OpUpdateRunningTimer, err)
		return
	}
	observability.RecordDebouncedWrite("ok")
	if record == nil {
		return
	}

	store.mu.Lock()
	if store.state.IsRunning && store.state.RunningTimerID == record.ID {
		store.state.ProjectName = record.ProjectName
		store.state.TaskName = record.TaskName
		store.state.TagNames = append([]string(nil), record.TagNames...)
	}
	store.mu.Unlock()
}

func (store *Store) broadcast(message model.SyncMessage) {
	message.Origin = store.origin
	if store.bus == nil {
		return
	}
	store.bus.Publish(message)
	observability.RecordBroadcast(string(message.Action))
}

func (store *Store) nonCritical(operation string, err error) {
	wrapped := &NonCriticalRemoteError{Operation: operation, Err: err}
	observability.RecordNonCriticalFailure(operation)
	store.logger.Warn("best-effort gateway call failed", "operation", operation, "error", wrapped)
}

func applyUpdate(state *model.TimerUIState, update model.TimerUpdate) {
	if update.Description != nil {
		state.Description = *update.Description
	}
	if update.ProjectID != nil {
		state.ProjectID = *update.ProjectID
		state.ProjectName = update.ProjectName
		if update.TaskID == nil {
			state.TaskID = 0
			state.TaskName = ""
		}
	}
	if update.TaskID != nil {
		state.TaskID = *update.TaskID
		state.TaskName = update.TaskName
	}
	if update.SetTags {
		state.TagIDs = append([]int64(nil), update.TagIDs...)
		state.TagNames = append([]string(nil), update.TagNames...)
	}
}

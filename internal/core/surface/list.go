package surface

import (
	"context"
	"log/slog"
	"sync"

	"timerbar/internal/core/model"
	"timerbar/internal/core/syncbus"
)

// DataView is a list of time entries that can re-fetch itself.
type DataView interface {
	Reload(ctx context.Context) error
}

// DataViewFunc adapts a function to DataView.
type DataViewFunc func(ctx context.Context) error

// Reload implements DataView.
func (fn DataViewFunc) Reload(ctx context.Context) error {
	return fn(ctx)
}

// ListConfig wires a TimesheetList.
type ListConfig struct {
	View   DataView
	Bus    *syncbus.Bus
	Logger *slog.Logger
}

// TimesheetList reloads a DataView whenever any surface starts or stops
// a timer, so recorded durations stay current.
type TimesheetList struct {
	mu          sync.Mutex
	view        DataView
	bus         *syncbus.Bus
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewTimesheetList creates an unmounted list.
func NewTimesheetList(config ListConfig) *TimesheetList {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &TimesheetList{
		view:   config.View,
		bus:    config.Bus,
		logger: config.Logger.With("surface", "timesheet_list"),
	}
}

// Mount subscribes to timer changes and loads the view once.
func (list *TimesheetList) Mount(ctx context.Context) error {
	list.mu.Lock()
	if list.cancel != nil {
		list.mu.Unlock()
		return nil
	}
	list.ctx, list.cancel = context.WithCancel(ctx)
	mountCtx := list.ctx
	list.mu.Unlock()

	if list.bus != nil {
		unsubscribe := list.bus.Subscribe(list.onSync)
		list.mu.Lock()
		list.unsubscribe = unsubscribe
		list.mu.Unlock()
	}
	return list.view.Reload(mountCtx)
}

// Unmount drops the subscription and cancels in-flight reloads.
func (list *TimesheetList) Unmount() {
	list.mu.Lock()
	cancel := list.cancel
	unsubscribe := list.unsubscribe
	list.cancel = nil
	list.ctx = nil
	list.unsubscribe = nil
	list.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

func (list *TimesheetList) onSync(message model.SyncMessage) {
	list.mu.Lock()
	ctx := list.ctx
	list.mu.Unlock()
	if ctx == nil {
		return
	}
	if err := list.view.Reload(ctx); err != nil {
		list.logger.Warn("reload after broadcast", "action", message.Action, "error", err)
	}
}

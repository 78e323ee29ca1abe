package timer

import (
	"context"
	"time"

	"timerbar/internal/core/model"
)

// Gateway is the remote persistence port the engine calls. The server
// behind it owns the single-running-timer invariant.
type Gateway interface {
	// GetRunningTimer returns the current user's running timer, or nil
	// when none is running.
	GetRunningTimer(ctx context.Context) (*model.TimerRecord, error)
	// StartTimer starts a new timer, stopping any running one first.
	StartTimer(ctx context.Context, request model.StartRequest) (model.TimerRecord, error)
	// StopRunningTimer stops the running timer with the server-computed
	// duration. Returns ErrNoRunningTimer when nothing was running.
	StopRunningTimer(ctx context.Context) (model.StopResult, error)
	// AdjustDuration overwrites the recorded duration of a timer, in hours.
	AdjustDuration(ctx context.Context, timerID int64, hours float64) error
	// GetTimerStartTimestamp returns the start time recorded for a timer.
	GetTimerStartTimestamp(ctx context.Context, timerID int64) (time.Time, error)
	// UpdateRunningTimer applies a partial edit to the running timer.
	UpdateRunningTimer(ctx context.Context, update model.TimerUpdate) (*model.TimerRecord, error)
	// IncrementFavoriteUse bumps the use counter of a favorite.
	IncrementFavoriteUse(ctx context.Context, favoriteID int64) error
}

// Catalog lists the selectable entities surfaces offer when starting a timer.
type Catalog interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListTasks(ctx context.Context, projectID int64) ([]model.Task, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	ListFavorites(ctx context.Context) ([]model.Favorite, error)
}

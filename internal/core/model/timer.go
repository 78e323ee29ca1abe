// Package model holds the data types shared by the timer engine and its surfaces.
package model

import (
	"slices"
	"time"
)

// TimerRecord is the server-owned time entry. Zero IDs mean "none".
type TimerRecord struct {
	ID          int64
	Description string
	ProjectID   int64
	ProjectName string
	TaskID      int64
	TaskName    string
	TagIDs      []int64
	TagNames    []string
	StartedAt   time.Time
}

// Clone returns a copy that shares no slices with record.
func (record TimerRecord) Clone() TimerRecord {
	record.TagIDs = slices.Clone(record.TagIDs)
	record.TagNames = slices.Clone(record.TagNames)
	return record
}

// TimerUIState is the per-surface view of the running timer.
type TimerUIState struct {
	IsRunning      bool
	RunningTimerID int64
	StartedAt      time.Time
	ElapsedSeconds int64
	Description    string
	ProjectID      int64
	ProjectName    string
	TaskID         int64
	TaskName       string
	TagIDs         []int64
	TagNames       []string
}

// StateFromRecord builds a running state from a server record.
func StateFromRecord(record TimerRecord) TimerUIState {
	return TimerUIState{
		IsRunning:      true,
		RunningTimerID: record.ID,
		StartedAt:      record.StartedAt,
		Description:    record.Description,
		ProjectID:      record.ProjectID,
		ProjectName:    record.ProjectName,
		TaskID:         record.TaskID,
		TaskName:       record.TaskName,
		TagIDs:         slices.Clone(record.TagIDs),
		TagNames:       slices.Clone(record.TagNames),
	}
}

// Clone returns a copy that shares no slices with state.
func (state TimerUIState) Clone() TimerUIState {
	state.TagIDs = slices.Clone(state.TagIDs)
	state.TagNames = slices.Clone(state.TagNames)
	return state
}

// StartRequest carries the selection a new timer is started with.
type StartRequest struct {
	Description string
	ProjectID   int64
	TaskID      int64
	TagIDs      []int64
}

// TimerUpdate is a partial edit of the running timer. Nil fields are
// left untouched.
type TimerUpdate struct {
	Description *string
	ProjectID   *int64
	ProjectName string
	TaskID      *int64
	TaskName    string
	TagIDs      []int64
	TagNames    []string
	SetTags     bool
}

// Merge folds next into update; fields set in next win.
func (update TimerUpdate) Merge(next TimerUpdate) TimerUpdate {
	if next.Description != nil {
		update.Description = next.Description
	}
	if next.ProjectID != nil {
		update.ProjectID = next.ProjectID
		update.ProjectName = next.ProjectName
		if next.TaskID == nil {
			var none int64
			update.TaskID = &none
			update.TaskName = ""
		}
	}
	if next.TaskID != nil {
		update.TaskID = next.TaskID
		update.TaskName = next.TaskName
	}
	if next.SetTags {
		update.SetTags = true
		update.TagIDs = slices.Clone(next.TagIDs)
		update.TagNames = slices.Clone(next.TagNames)
	}
	return update
}

// Empty reports whether update changes nothing.
func (update TimerUpdate) Empty() bool {
	return update.Description == nil && update.ProjectID == nil && update.TaskID == nil && !update.SetTags
}

// StopResult is returned by the server when a timer is stopped.
type StopResult struct {
	TimerID       int64
	DurationHours float64
}

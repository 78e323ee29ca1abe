// Package memory is an in-process timer gateway for local development
// and tests. It enforces the single-running-timer rule the way the
// server does: starting a new timer stops the running one first.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"timerbar/internal/clock"
	"timerbar/internal/core/model"
	"timerbar/internal/core/timer"
)

// Entry is a stored time entry. Running entries have a zero duration.
type Entry struct {
	Record        model.TimerRecord
	DurationHours float64
	Running       bool
}

// Gateway stores entries, projects, tasks, tags and favorites in memory.
type Gateway struct {
	mu        sync.Mutex
	clock     clock.Clock
	nextID    int64
	entries   []*Entry
	projects  []model.Project
	tasks     []model.Task
	tags      []model.Tag
	favorites []model.Favorite
	failures  map[string]error
	calls     map[string]int
}

// New creates an empty Gateway driven by source.
func New(source clock.Clock) *Gateway {
	if source == nil {
		source = clock.Real()
	}
	return &Gateway{
		clock:    source,
		nextID:   1,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// NewSeeded creates a Gateway with a small demo catalog.
func NewSeeded(source clock.Clock) *Gateway {
	gateway := New(source)
	gateway.AddProject(model.Project{ID: 7, Name: "Internal"})
	gateway.AddProject(model.Project{ID: 11, Name: "Customer Portal"})
	gateway.AddTask(model.Task{ID: 70, ProjectID: 7, Name: "Planning"})
	gateway.AddTask(model.Task{ID: 71, ProjectID: 7, Name: "Code review"})
	gateway.AddTask(model.Task{ID: 110, ProjectID: 11, Name: "Checkout flow"})
	gateway.AddTag(model.Tag{ID: 1, Name: "billable", Color: 1})
	gateway.AddTag(model.Tag{ID: 2, Name: "meeting", Color: 4})
	gateway.AddFavorite(model.Favorite{ID: 1, Description: "Daily standup", ProjectID: 7, TaskID: 70, TagIDs: []int64{2}})
	return gateway
}

// AddProject registers a project.
func (gateway *Gateway) AddProject(project model.Project) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.projects = append(gateway.projects, project)
}

// AddTask registers a task.
func (gateway *Gateway) AddTask(task model.Task) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.tasks = append(gateway.tasks, task)
}

// AddTag registers a tag.
func (gateway *Gateway) AddTag(tag model.Tag) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.tags = append(gateway.tags, tag)
}

// AddFavorite registers a favorite. Names are resolved from the catalog.
func (gateway *Gateway) AddFavorite(favorite model.Favorite) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	favorite.ProjectName = gateway.projectNameLocked(favorite.ProjectID)
	favorite.TaskName = gateway.taskNameLocked(favorite.TaskID)
	favorite.TagNames = gateway.tagNamesLocked(favorite.TagIDs)
	gateway.favorites = append(gateway.favorites, favorite)
}

// Fail makes every later call of operation return err. A nil err
// clears the failure.
func (gateway *Gateway) Fail(operation string, err error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err == nil {
		delete(gateway.failures, operation)
		return
	}
	gateway.failures[operation] = err
}

// Calls returns how many times operation was invoked.
func (gateway *Gateway) Calls(operation string) int {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.calls[operation]
}

// Entries returns copies of all stored entries, newest first.
func (gateway *Gateway) Entries() []Entry {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	entries := make([]Entry, 0, len(gateway.entries))
	for i := len(gateway.entries) - 1; i >= 0; i-- {
		entry := *gateway.entries[i]
		entry.Record = entry.Record.Clone()
		entries = append(entries, entry)
	}
	return entries
}

// GetRunningTimer implements timer.Gateway.
func (gateway *Gateway) GetRunningTimer(ctx context.Context) (*model.TimerRecord, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpGetRunningTimer); err != nil {
		return nil, err
	}
	running := gateway.runningLocked()
	if running == nil {
		return nil, nil
	}
	record := running.Record.Clone()
	return &record, nil
}

// StartTimer implements timer.Gateway.
func (gateway *Gateway) StartTimer(ctx context.Context, request model.StartRequest) (model.TimerRecord, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpStartTimer); err != nil {
		return model.TimerRecord{}, err
	}
	if gateway.projectNameLocked(request.ProjectID) == "" {
		return model.TimerRecord{}, fmt.Errorf("start timer: unknown project %d", request.ProjectID)
	}

	now := gateway.clock.Now()
	if running := gateway.runningLocked(); running != nil {
		gateway.finishLocked(running, now)
	}

	description := strings.TrimSpace(request.Description)
	if description == "" {
		description = "/"
	}
	record := model.TimerRecord{
		ID:          gateway.nextID,
		Description: description,
		ProjectID:   request.ProjectID,
		ProjectName: gateway.projectNameLocked(request.ProjectID),
		TaskID:      request.TaskID,
		TaskName:    gateway.taskNameLocked(request.TaskID),
		TagIDs:      slices.Clone(request.TagIDs),
		TagNames:    gateway.tagNamesLocked(request.TagIDs),
		StartedAt:   now,
	}
	gateway.nextID++
	gateway.entries = append(gateway.entries, &Entry{Record: record, Running: true})
	return record.Clone(), nil
}

// StopRunningTimer implements timer.Gateway.
func (gateway *Gateway) StopRunningTimer(ctx context.Context) (model.StopResult, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpStopRunningTimer); err != nil {
		return model.StopResult{}, err
	}
	running := gateway.runningLocked()
	if running == nil {
		return model.StopResult{}, timer.ErrNoRunningTimer
	}
	gateway.finishLocked(running, gateway.clock.Now())
	return model.StopResult{TimerID: running.Record.ID, DurationHours: running.DurationHours}, nil
}

// AdjustDuration implements timer.Gateway.
func (gateway *Gateway) AdjustDuration(ctx context.Context, timerID int64, hours float64) error {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpAdjustDuration); err != nil {
		return err
	}
	entry := gateway.entryLocked(timerID)
	if entry == nil {
		return fmt.Errorf("adjust duration: unknown timer %d", timerID)
	}
	entry.DurationHours = hours
	entry.Running = false
	return nil
}

// GetTimerStartTimestamp implements timer.Gateway.
func (gateway *Gateway) GetTimerStartTimestamp(ctx context.Context, timerID int64) (time.Time, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpGetTimerStart); err != nil {
		return time.Time{}, err
	}
	entry := gateway.entryLocked(timerID)
	if entry == nil {
		return time.Time{}, fmt.Errorf("get timer start: unknown timer %d", timerID)
	}
	return entry.Record.StartedAt, nil
}

// UpdateRunningTimer implements timer.Gateway.
func (gateway *Gateway) UpdateRunningTimer(ctx context.Context, update model.TimerUpdate) (*model.TimerRecord, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpUpdateRunningTimer); err != nil {
		return nil, err
	}
	running := gateway.runningLocked()
	if running == nil {
		return nil, timer.ErrNoRunningTimer
	}

	record := &running.Record
	if update.Description != nil {
		record.Description = *update.Description
		if record.Description == "" {
			record.Description = "/"
		}
	}
	if update.ProjectID != nil {
		record.ProjectID = *update.ProjectID
		record.ProjectName = gateway.projectNameLocked(record.ProjectID)
		if update.TaskID == nil {
			record.TaskID = 0
			record.TaskName = ""
		}
	}
	if update.TaskID != nil {
		record.TaskID = *update.TaskID
		record.TaskName = gateway.taskNameLocked(record.TaskID)
	}
	if update.SetTags {
		record.TagIDs = slices.Clone(update.TagIDs)
		record.TagNames = gateway.tagNamesLocked(update.TagIDs)
	}

	result := record.Clone()
	return &result, nil
}

// IncrementFavoriteUse implements timer.Gateway.
func (gateway *Gateway) IncrementFavoriteUse(ctx context.Context, favoriteID int64) error {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, timer.OpIncrementFavoriteUse); err != nil {
		return err
	}
	for i := range gateway.favorites {
		if gateway.favorites[i].ID == favoriteID {
			gateway.favorites[i].UseCount++
			return nil
		}
	}
	return fmt.Errorf("increment favorite use: unknown favorite %d", favoriteID)
}

// ListProjects implements timer.Catalog.
func (gateway *Gateway) ListProjects(ctx context.Context) ([]model.Project, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, "get_timer_projects"); err != nil {
		return nil, err
	}
	projects := slices.Clone(gateway.projects)
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// ListTasks implements timer.Catalog.
func (gateway *Gateway) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, "get_timer_tasks"); err != nil {
		return nil, err
	}
	var tasks []model.Task
	for _, task := range gateway.tasks {
		if task.ProjectID == projectID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}

// ListTags implements timer.Catalog.
func (gateway *Gateway) ListTags(ctx context.Context) ([]model.Tag, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, "get_timer_tags"); err != nil {
		return nil, err
	}
	tags := slices.Clone(gateway.tags)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// ListFavorites implements timer.Catalog, most used first.
func (gateway *Gateway) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if err := gateway.enterLocked(ctx, "get_my_favorites"); err != nil {
		return nil, err
	}
	favorites := make([]model.Favorite, len(gateway.favorites))
	for i, favorite := range gateway.favorites {
		favorite.TagIDs = slices.Clone(favorite.TagIDs)
		favorite.TagNames = slices.Clone(favorite.TagNames)
		favorites[i] = favorite
	}
	sort.SliceStable(favorites, func(i, j int) bool {
		if favorites[i].UseCount != favorites[j].UseCount {
			return favorites[i].UseCount > favorites[j].UseCount
		}
		return favorites[i].Description < favorites[j].Description
	})
	return favorites, nil
}

func (gateway *Gateway) enterLocked(ctx context.Context, operation string) error {
	gateway.calls[operation]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return gateway.failures[operation]
}

func (gateway *Gateway) runningLocked() *Entry {
	for i := len(gateway.entries) - 1; i >= 0; i-- {
		if gateway.entries[i].Running {
			return gateway.entries[i]
		}
	}
	return nil
}

func (gateway *Gateway) entryLocked(timerID int64) *Entry {
	for _, entry := range gateway.entries {
		if entry.Record.ID == timerID {
			return entry
		}
	}
	return nil
}

func (gateway *Gateway) finishLocked(entry *Entry, end time.Time) {
	entry.Running = false
	hours := end.Sub(entry.Record.StartedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	entry.DurationHours = hours
}

func (gateway *Gateway) projectNameLocked(projectID int64) string {
	for _, project := range gateway.projects {
		if project.ID == projectID {
			return project.Name
		}
	}
	return ""
}

func (gateway *Gateway) taskNameLocked(taskID int64) string {
	if taskID == 0 {
		return ""
	}
	for _, task := range gateway.tasks {
		if task.ID == taskID {
			return task.Name
		}
	}
	return ""
}

func (gateway *Gateway) tagNamesLocked(tagIDs []int64) []string {
	if len(tagIDs) == 0 {
		return nil
	}
	names := make([]string, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		for _, tag := range gateway.tags {
			if tag.ID == tagID {
				names = append(names, tag.Name)
				break
			}
		}
	}
	return names
}

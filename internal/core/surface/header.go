// Package surface hosts the toolkit-neutral controllers behind each
// mounted timer surface. A desktop window and a terminal view both drive
// a Header; list views wrap their data source in a TimesheetList.
package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/model"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/core/timer"
	"timerbar/internal/observability"
)

// DefaultTitle is shown while no timer runs.
const DefaultTitle = "Timer Bar"

// HeaderConfig wires a Header.
type HeaderConfig struct {
	Gateway   timer.Gateway
	Catalog   timer.Catalog
	Bus       *syncbus.Bus
	Clock     clock.Clock
	Logger    *slog.Logger
	Notifier  Notifier
	Activity  idle.ActivitySource
	Engine    model.EngineConfig
	Shortcut  Shortcut
	Origin    string
	BaseTitle string
	// OnChange is called with a fresh View after every visible change,
	// including each tick. It runs on the goroutine that caused the
	// change and must not block.
	OnChange func(View)
}

// View is a render snapshot of a Header.
type View struct {
	Running     bool
	TimerID     int64
	Elapsed     timer.Elapsed
	Title       string
	Draft       Draft
	IdleVisible bool
	Idle        model.IdleEvent
	IdleText    string
}

// Options are the catalog entries a surface offers.
type Options struct {
	Projects  []model.Project
	Tags      []model.Tag
	Favorites []model.Favorite
}

// Header is one mounted timer surface: it owns a Store, a Ticker, an
// idle Monitor and Flow, and the draft selection for the next timer.
type Header struct {
	mu          sync.Mutex
	gateway     timer.Gateway
	catalog     timer.Catalog
	bus         *syncbus.Bus
	clock       clock.Clock
	logger      *slog.Logger
	notifier    Notifier
	activity    idle.ActivitySource
	baseTitle   string
	onChange    func(View)
	shortcut    Shortcut
	store       *timer.Store
	ticker      *timer.Ticker
	tracker     *idle.Tracker
	flow        *idle.Flow
	monitor     *idle.Monitor
	draft       Draft
	mounted     bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe []func()
}

// NewHeader creates an unmounted Header.
func NewHeader(config HeaderConfig) *Header {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Notifier == nil {
		config.Notifier = LogNotifier{Logger: config.Logger}
	}
	if config.Shortcut.Key == "" {
		config.Shortcut = DefaultShortcut
	}
	if config.BaseTitle == "" {
		config.BaseTitle = DefaultTitle
	}
	engine := config.Engine.WithDefaults()

	header := &Header{
		gateway:   config.Gateway,
		catalog:   config.Catalog,
		bus:       config.Bus,
		clock:     config.Clock,
		notifier:  config.Notifier,
		activity:  config.Activity,
		baseTitle: config.BaseTitle,
		onChange:  config.OnChange,
		shortcut:  config.Shortcut,
	}
	header.store = timer.NewStore(timer.StoreConfig{
		Gateway:       config.Gateway,
		Bus:           config.Bus,
		Clock:         config.Clock,
		Logger:        config.Logger,
		Origin:        config.Origin,
		DebounceDelay: engine.DebounceDelay,
		WriteTimeout:  engine.WriteTimeout,
	})
	header.logger = config.Logger.With("surface", header.store.Origin())
	header.ticker = timer.NewTicker(config.Clock, engine.TickInterval, func(timer.Elapsed) {
		header.changed()
	})
	header.tracker = idle.NewTracker(config.Clock.Now())
	header.flow = idle.NewFlow(idle.FlowConfig{
		Stopper:    header.store,
		Timestamps: config.Gateway,
		Tracker:    header.tracker,
		Clock:      config.Clock,
		Logger:     header.logger,
		OnChange:   func(bool, model.IdleEvent) { header.changed() },
	})
	header.monitor = idle.NewMonitor(idle.MonitorConfig{
		Clock:     config.Clock,
		Tracker:   header.tracker,
		Flow:      header.flow,
		Running:   func() bool { return header.store.State().IsRunning },
		Threshold: engine.IdleThreshold,
		Interval:  engine.IdleCheckInterval,
		Logger:    header.logger,
	})
	header.monitor.SetEnabled(!engine.IdleDisabled)
	return header
}

// Store returns the header's state store.
func (header *Header) Store() *timer.Store { return header.store }

// Tracker returns the activity tracker the idle monitor samples.
func (header *Header) Tracker() *idle.Tracker { return header.tracker }

// Mount loads the running timer and starts the ticker, the idle monitor
// and the bus subscription. A failed load leaves the header mounted and
// showing no running timer.
func (header *Header) Mount(ctx context.Context) error {
	header.mu.Lock()
	if header.mounted {
		header.mu.Unlock()
		return nil
	}
	header.ctx, header.cancel = context.WithCancel(ctx)
	header.mounted = true
	mountCtx := header.ctx
	header.mu.Unlock()

	var subscriptions []func()
	if header.bus != nil {
		subscriptions = append(subscriptions, header.bus.Subscribe(header.onSync))
	}
	if header.activity != nil {
		subscriptions = append(subscriptions, header.monitor.Attach(header.activity))
	}
	header.mu.Lock()
	header.unsubscribe = subscriptions
	header.mu.Unlock()

	header.monitor.Start()
	if err := header.reload(mountCtx); err != nil {
		return fmt.Errorf("mount header: %w", err)
	}
	return nil
}

// Unmount cancels every schedule, subscription, pending write and
// in-flight reload, and clears the idle prompt.
func (header *Header) Unmount() {
	header.mu.Lock()
	if !header.mounted {
		header.mu.Unlock()
		return
	}
	header.mounted = false
	header.cancel()
	subscriptions := header.unsubscribe
	header.unsubscribe = nil
	header.mu.Unlock()

	for _, unsubscribe := range subscriptions {
		unsubscribe()
	}
	header.monitor.Stop()
	header.ticker.Stop()
	header.store.Close()
	header.flow.Reset()
}

// Mounted reports whether the header is mounted.
func (header *Header) Mounted() bool {
	header.mu.Lock()
	defer header.mu.Unlock()
	return header.mounted
}

// Toggle stops the running timer or starts one from the draft.
func (header *Header) Toggle(ctx context.Context) error {
	if header.store.State().IsRunning {
		return header.StopTimer(ctx)
	}
	return header.StartTimer(ctx)
}

// StartTimer starts a timer from the draft selection.
func (header *Header) StartTimer(ctx context.Context) error {
	record, err := header.store.Start(ctx, header.Draft().Request())
	if err != nil {
		header.report("start timer", err)
		return err
	}
	header.tracker.Touch(header.clock.Now())
	header.ticker.Start(record.StartedAt)
	header.setDraft(draftFromState(header.store.State()))
	header.changed()
	return nil
}

// StopTimer stops the running timer. The draft keeps its selection.
func (header *Header) StopTimer(ctx context.Context) error {
	if err := header.store.Stop(ctx); err != nil {
		header.report("stop timer", err)
		return err
	}
	header.ticker.Stop()
	header.flow.Reset()
	header.changed()
	return nil
}

// HandleKey toggles the timer when event is the configured shortcut. It
// reports whether the event was consumed; callers must then suppress
// the toolkit's default handling.
func (header *Header) HandleKey(event KeyEvent) bool {
	header.mu.Lock()
	shortcut := header.shortcut
	ctx := header.ctx
	header.mu.Unlock()

	if !shortcut.Matches(event) {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// Failures are already reported through the notifier.
	_ = header.Toggle(ctx)
	return true
}

// Draft returns a copy of the current selection.
func (header *Header) Draft() Draft {
	header.mu.Lock()
	defer header.mu.Unlock()
	return header.draft.clone()
}

// SetDescription changes the description of the draft and, while a
// timer runs, of the running timer.
func (header *Header) SetDescription(description string) {
	header.mu.Lock()
	header.draft.Description = description
	header.mu.Unlock()

	header.store.Edit(model.TimerUpdate{Description: &description})
	header.changed()
}

// SubmitDescription starts the timer when nothing runs and a project is
// selected. It reports whether a start was attempted.
func (header *Header) SubmitDescription(ctx context.Context) (bool, error) {
	if header.store.State().IsRunning || header.Draft().ProjectID == 0 {
		return false, nil
	}
	return true, header.StartTimer(ctx)
}

// SelectProject selects project and clears the task.
func (header *Header) SelectProject(project model.Project) {
	header.mu.Lock()
	header.draft.ProjectID = project.ID
	header.draft.ProjectName = project.Name
	header.draft.TaskID = 0
	header.draft.TaskName = ""
	header.mu.Unlock()

	projectID := project.ID
	header.store.Edit(model.TimerUpdate{ProjectID: &projectID, ProjectName: project.Name})
	header.changed()
}

// SelectTask selects task. A project must be selected first.
func (header *Header) SelectTask(task model.Task) error {
	header.mu.Lock()
	if header.draft.ProjectID == 0 {
		header.mu.Unlock()
		err := &timer.ValidationError{Field: "task", Message: "select a project first"}
		header.notifier.Notify(LevelWarning, "Select a project first.")
		return err
	}
	header.draft.TaskID = task.ID
	header.draft.TaskName = task.Name
	header.mu.Unlock()

	taskID := task.ID
	header.store.Edit(model.TimerUpdate{TaskID: &taskID, TaskName: task.Name})
	header.changed()
	return nil
}

// ToggleTag adds tag to the selection or removes it.
func (header *Header) ToggleTag(tag model.Tag) {
	header.mu.Lock()
	ids, names := header.draft.toggled(tag)
	header.draft.TagIDs = ids
	header.draft.TagNames = names
	header.mu.Unlock()

	header.store.Edit(model.TimerUpdate{SetTags: true, TagIDs: ids, TagNames: names})
	header.changed()
}

// ApplyFavorite copies favorite into the selection and bumps its use
// count. A failed bump is logged and ignored.
func (header *Header) ApplyFavorite(ctx context.Context, favorite model.Favorite) {
	draft := draftFromFavorite(favorite)
	header.mu.Lock()
	header.draft = draft.clone()
	header.mu.Unlock()

	projectID, taskID := draft.ProjectID, draft.TaskID
	header.store.Edit(model.TimerUpdate{
		Description: &draft.Description,
		ProjectID:   &projectID,
		ProjectName: draft.ProjectName,
		TaskID:      &taskID,
		TaskName:    draft.TaskName,
		SetTags:     true,
		TagIDs:      draft.TagIDs,
		TagNames:    draft.TagNames,
	})
	header.changed()

	if err := header.gateway.IncrementFavoriteUse(ctx, favorite.ID); err != nil {
		wrapped := &timer.NonCriticalRemoteError{Operation: timer.OpIncrementFavoriteUse, Err: err}
		observability.RecordNonCriticalFailure(timer.OpIncrementFavoriteUse)
		header.logger.Warn("best-effort gateway call failed", "favorite_id", favorite.ID, "error", wrapped)
	}
}

// Options lists the projects, tags and favorites the surface offers.
func (header *Header) Options(ctx context.Context) (Options, error) {
	if header.catalog == nil {
		return Options{}, nil
	}
	projects, err := header.catalog.ListProjects(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("list projects: %w", err)
	}
	tags, err := header.catalog.ListTags(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("list tags: %w", err)
	}
	favorites, err := header.catalog.ListFavorites(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("list favorites: %w", err)
	}
	return Options{Projects: projects, Tags: tags, Favorites: favorites}, nil
}

// Tasks lists the tasks of the selected project.
func (header *Header) Tasks(ctx context.Context) ([]model.Task, error) {
	projectID := header.Draft().ProjectID
	if header.catalog == nil || projectID == 0 {
		return nil, nil
	}
	tasks, err := header.catalog.ListTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// KeepIdle resolves the idle prompt keeping the idle time.
func (header *Header) KeepIdle() error {
	return header.flow.Keep()
}

// DiscardIdle resolves the idle prompt by stopping the timer without
// the idle span.
func (header *Header) DiscardIdle(ctx context.Context) error {
	err := header.flow.DiscardIdle(ctx)
	if errors.Is(err, idle.ErrNotPending) {
		return err
	}
	header.afterIdleStop("discard idle time", err)
	if err == nil {
		header.notifier.Notify(LevelInfo, "Timer stopped. Idle time discarded.")
	}
	return err
}

// StopAndKeepIdle resolves the idle prompt by stopping the timer with
// the idle span included.
func (header *Header) StopAndKeepIdle(ctx context.Context) error {
	err := header.flow.StopAndKeep(ctx)
	if errors.Is(err, idle.ErrNotPending) {
		return err
	}
	header.afterIdleStop("stop timer", err)
	return err
}

// ApplySettings updates the idle policy, debounce delay and shortcut of
// a live header.
func (header *Header) ApplySettings(engine model.EngineConfig, shortcut Shortcut) {
	engine = engine.WithDefaults()
	header.monitor.SetThreshold(engine.IdleThreshold)
	header.monitor.SetInterval(engine.IdleCheckInterval)
	header.monitor.SetEnabled(!engine.IdleDisabled)
	header.store.SetDebounceDelay(engine.DebounceDelay)
	if shortcut.Key != "" {
		header.mu.Lock()
		header.shortcut = shortcut
		header.mu.Unlock()
	}
}

// Title is the window title: elapsed time and label while running.
func (header *Header) Title() string {
	return header.title(header.store.State())
}

// View returns a render snapshot.
func (header *Header) View() View {
	state := header.store.State()
	event, visible := header.flow.Pending()
	view := View{
		Running:     state.IsRunning,
		TimerID:     state.RunningTimerID,
		Elapsed:     timer.Elapsed{Text: timer.ZeroElapsedText},
		Title:       header.title(state),
		Draft:       header.Draft(),
		IdleVisible: visible,
	}
	if state.IsRunning {
		view.Elapsed = timer.Elapsed{Seconds: state.ElapsedSeconds, Text: timer.FormatElapsed(state.ElapsedSeconds)}
	}
	if visible {
		view.Idle = event
		view.IdleText = idle.FormatIdle(event.IdleSeconds)
	}
	return view
}

func (header *Header) title(state model.TimerUIState) string {
	if !state.IsRunning {
		return header.baseTitle
	}
	label := state.Description
	if label == "" || label == "/" {
		label = state.ProjectName
	}
	if label == "" {
		label = "Timer"
	}
	return fmt.Sprintf("⏱ %s - %s", timer.FormatElapsed(state.ElapsedSeconds), label)
}

func (header *Header) onSync(message model.SyncMessage) {
	if message.Origin == header.store.Origin() {
		return
	}
	header.mu.Lock()
	ctx := header.ctx
	mounted := header.mounted
	header.mu.Unlock()
	if !mounted {
		return
	}
	if err := header.reload(ctx); err != nil {
		header.logger.Warn("reload after broadcast", "action", message.Action, "error", err)
	}
}

func (header *Header) reload(ctx context.Context) error {
	state, err := header.store.Load(ctx)
	if state.IsRunning {
		header.setDraft(draftFromState(state))
		header.ticker.Start(state.StartedAt)
	} else {
		header.ticker.Stop()
	}
	header.changed()
	return err
}

func (header *Header) afterIdleStop(action string, err error) {
	if err != nil {
		header.report(action, err)
		return
	}
	header.ticker.Stop()
	header.changed()
}

func (header *Header) report(action string, err error) {
	var validation *timer.ValidationError
	if errors.As(err, &validation) {
		header.notifier.Notify(LevelWarning, "Please select a project first.")
		return
	}
	header.logger.Error(action, "error", err)
	header.notifier.Notify(LevelDanger, fmt.Sprintf("Failed to %s: %v", action, err))
}

func (header *Header) setDraft(draft Draft) {
	header.mu.Lock()
	header.draft = draft
	header.mu.Unlock()
}

func (header *Header) changed() {
	header.mu.Lock()
	mounted := header.mounted
	onChange := header.onChange
	header.mu.Unlock()
	if !mounted || onChange == nil {
		return
	}
	onChange(header.View())
}

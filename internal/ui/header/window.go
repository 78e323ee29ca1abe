// Package header renders a surface.Header as a fyne window: description,
// project, task, tags, favorites, the elapsed clock and a start/stop
// button.
package header

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/model"
	"timerbar/internal/core/surface"
)

// Window is the desktop timer header.
type Window struct {
	app      fyne.App
	window   fyne.Window
	clock    clock.Clock
	logger   *slog.Logger
	activity *idle.ManualSource
	header   *surface.Header
	ctx      context.Context

	description *chordEntry
	project     *widget.Select
	task        *widget.Select
	favorite    *widget.Select
	tagBox      *fyne.Container
	elapsed     *widget.Label
	toggle      *widget.Button

	// rendering suppresses widget callbacks while state is pushed in.
	rendering bool
	options   surface.Options
	tasks     []model.Task
	tagChecks map[int64]*widget.Check
	shortcut  *desktop.CustomShortcut
	chord     surface.Shortcut
}

// New creates the window. Attach must be called before it is shown.
func New(app fyne.App, clk clock.Clock, activity *idle.ManualSource, logger *slog.Logger) *Window {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	window := &Window{
		app:       app,
		window:    app.NewWindow(surface.DefaultTitle),
		clock:     clk,
		logger:    logger.With("ui", "header"),
		activity:  activity,
		ctx:       context.Background(),
		elapsed:   widget.NewLabelWithStyle("0:00:00", fyne.TextAlignCenter, fyne.TextStyle{Monospace: true, Bold: true}),
		tagBox:    container.NewHBox(),
		tagChecks: make(map[int64]*widget.Check),
	}

	window.description = newChordEntry(window.handleChord)
	window.description.SetPlaceHolder("What are you working on?")
	window.description.OnChanged = window.onDescription
	window.description.OnSubmitted = func(string) {
		window.touch(model.ActivityKeyPress)
		go func() {
			// Failures are reported through the notifier.
			_, _ = window.header.SubmitDescription(window.ctx)
		}()
	}
	window.project = widget.NewSelect(nil, window.onProject)
	window.project.PlaceHolder = "Project"
	window.task = widget.NewSelect(nil, window.onTask)
	window.task.PlaceHolder = "Task"
	window.favorite = widget.NewSelect(nil, window.onFavorite)
	window.favorite.PlaceHolder = "Favorites"
	window.toggle = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		window.touch(model.ActivityClick)
		go func() { _ = window.header.Toggle(window.ctx) }()
	})
	window.toggle.Importance = widget.HighImportance

	window.window.SetContent(container.NewVBox(
		container.NewBorder(nil, nil, nil, container.NewHBox(window.elapsed, window.toggle), window.description),
		container.NewGridWithColumns(3, window.project, window.task, window.favorite),
		window.tagBox,
	))
	window.window.Resize(fyne.NewSize(640, 0))
	window.window.SetCloseIntercept(func() {
		window.window.Hide()
	})
	window.window.Canvas().SetOnTypedKey(func(*fyne.KeyEvent) {
		window.touch(model.ActivityKeyPress)
	})
	return window
}

// Notifier shows header notices: failures as a dialog on this window,
// everything else as a desktop notification.
func (window *Window) Notifier() surface.Notifier {
	return surface.NotifierFunc(func(level surface.Level, message string) {
		fyne.Do(func() {
			if level == surface.LevelDanger {
				dialog.ShowError(errors.New(message), window.window)
				return
			}
			window.app.SendNotification(fyne.NewNotification(surface.DefaultTitle, message))
		})
	})
}

// Attach binds the window to header and registers its shortcut. ctx
// bounds every call the window makes on the header's behalf.
func (window *Window) Attach(ctx context.Context, header *surface.Header, shortcut surface.Shortcut) {
	window.ctx = ctx
	window.header = header
	window.SetShortcut(shortcut)
}

// SetShortcut replaces the start/stop key chord. The canvas sees the
// chord only when no shortcut-aware widget has focus, so the description
// entry forwards it as well.
func (window *Window) SetShortcut(shortcut surface.Shortcut) {
	canvas := window.window.Canvas()
	if window.shortcut != nil {
		canvas.RemoveShortcut(window.shortcut)
	}
	window.chord = shortcut
	window.shortcut = customShortcut(shortcut)
	canvas.AddShortcut(window.shortcut, func(typed fyne.Shortcut) {
		window.handleChord(typed)
	})
}

// handleChord toggles the timer when typed is the start/stop chord and
// reports whether it did.
func (window *Window) handleChord(typed fyne.Shortcut) bool {
	event, ok := keyEvent(typed)
	if !ok || !window.chord.Matches(event) || window.header == nil {
		return false
	}
	window.touch(model.ActivityKeyPress)
	go window.header.HandleKey(event)
	return true
}

// LoadOptions fetches the catalog and fills the pickers.
func (window *Window) LoadOptions(ctx context.Context) error {
	options, err := window.header.Options(ctx)
	if err != nil {
		return err
	}
	fyne.Do(func() {
		window.options = options
		window.project.SetOptions(projectNames(options.Projects))
		favorites := make([]string, 0, len(options.Favorites))
		for _, favorite := range options.Favorites {
			favorites = append(favorites, favorite.Description)
		}
		window.favorite.SetOptions(favorites)
		window.buildTags()
		window.render(window.header.View())
	})
	return nil
}

// Render pushes a header view into the widgets. Safe from any goroutine.
func (window *Window) Render(view surface.View) {
	fyne.Do(func() {
		window.render(view)
	})
}

// Show brings the window to the front.
func (window *Window) Show() {
	window.window.Show()
	window.window.RequestFocus()
}

// Window exposes the underlying fyne window.
func (window *Window) Window() fyne.Window {
	return window.window
}

func (window *Window) render(view surface.View) {
	window.rendering = true
	defer func() { window.rendering = false }()

	window.window.SetTitle(view.Title)
	window.elapsed.SetText(view.Elapsed.Text)
	if view.Running {
		window.toggle.SetText("Stop")
		window.toggle.SetIcon(theme.MediaStopIcon())
		window.toggle.Importance = widget.DangerImportance
	} else {
		window.toggle.SetText("Start")
		window.toggle.SetIcon(theme.MediaPlayIcon())
		window.toggle.Importance = widget.HighImportance
	}
	window.toggle.Refresh()

	draft := view.Draft
	if window.description.Text != draft.Description {
		window.description.SetText(draft.Description)
	}
	if draft.ProjectName == "" {
		window.project.ClearSelected()
	} else if window.project.Selected != draft.ProjectName {
		window.project.SetSelected(draft.ProjectName)
	}
	if draft.TaskName == "" {
		window.task.ClearSelected()
	} else if window.task.Selected != draft.TaskName {
		window.task.SetSelected(draft.TaskName)
	}
	for tagID, check := range window.tagChecks {
		if check.Checked != draft.HasTag(tagID) {
			check.SetChecked(draft.HasTag(tagID))
		}
	}
}

func (window *Window) buildTags() {
	window.tagBox.RemoveAll()
	window.tagChecks = make(map[int64]*widget.Check, len(window.options.Tags))
	for _, tag := range window.options.Tags {
		check := widget.NewCheck(tag.Name, func(bool) {
			if window.rendering {
				return
			}
			window.touch(model.ActivityClick)
			window.header.ToggleTag(tag)
		})
		window.tagChecks[tag.ID] = check
		window.tagBox.Add(check)
	}
	window.tagBox.Refresh()
}

func (window *Window) onDescription(text string) {
	if window.rendering {
		return
	}
	window.touch(model.ActivityKeyPress)
	window.header.SetDescription(text)
}

func (window *Window) onProject(name string) {
	if window.rendering || name == "" {
		return
	}
	window.touch(model.ActivityClick)
	for _, project := range window.options.Projects {
		if project.Name == name {
			window.header.SelectProject(project)
			go window.loadTasks()
			return
		}
	}
}

func (window *Window) onTask(name string) {
	if window.rendering || name == "" {
		return
	}
	window.touch(model.ActivityClick)
	for _, task := range window.tasks {
		if task.Name == name {
			// A missing project is reported through the notifier.
			_ = window.header.SelectTask(task)
			return
		}
	}
}

func (window *Window) onFavorite(name string) {
	if window.rendering || name == "" {
		return
	}
	window.touch(model.ActivityClick)
	for _, favorite := range window.options.Favorites {
		if favorite.Description == name {
			go func() {
				window.header.ApplyFavorite(window.ctx, favorite)
				window.loadTasks()
			}()
			return
		}
	}
}

func (window *Window) loadTasks() {
	tasks, err := window.header.Tasks(window.ctx)
	if err != nil {
		window.logger.Warn("load tasks", "error", err)
		return
	}
	fyne.Do(func() {
		window.tasks = tasks
		names := make([]string, 0, len(tasks))
		for _, task := range tasks {
			names = append(names, task.Name)
		}
		window.task.SetOptions(names)
		window.render(window.header.View())
	})
}

func (window *Window) touch(kind model.ActivityKind) {
	if window.activity != nil {
		window.activity.Emit(model.Activity{Kind: kind, At: window.clock.Now()})
	}
}

func projectNames(projects []model.Project) []string {
	names := make([]string, 0, len(projects))
	for _, project := range projects {
		names = append(names, project.Name)
	}
	return names
}

func keyEvent(typed fyne.Shortcut) (surface.KeyEvent, bool) {
	custom, ok := typed.(*desktop.CustomShortcut)
	if !ok {
		return surface.KeyEvent{}, false
	}
	return surface.KeyEvent{
		Key:   string(custom.KeyName),
		Ctrl:  custom.Modifier&fyne.KeyModifierControl != 0,
		Shift: custom.Modifier&fyne.KeyModifierShift != 0,
		Alt:   custom.Modifier&fyne.KeyModifierAlt != 0,
	}, true
}

func customShortcut(shortcut surface.Shortcut) *desktop.CustomShortcut {
	var modifier fyne.KeyModifier
	if shortcut.Ctrl {
		modifier |= fyne.KeyModifierControl
	}
	if shortcut.Shift {
		modifier |= fyne.KeyModifierShift
	}
	if shortcut.Alt {
		modifier |= fyne.KeyModifierAlt
	}
	return &desktop.CustomShortcut{KeyName: fyne.KeyName(strings.ToUpper(shortcut.Key)), Modifier: modifier}
}

// chordEntry is an Entry that offers every shortcut to onChord before
// its own handling. Fyne delivers shortcuts to the focused widget
// instead of the canvas.
type chordEntry struct {
	widget.Entry
	onChord func(fyne.Shortcut) bool
}

func newChordEntry(onChord func(fyne.Shortcut) bool) *chordEntry {
	entry := &chordEntry{onChord: onChord}
	entry.ExtendBaseWidget(entry)
	return entry
}

func (entry *chordEntry) TypedShortcut(shortcut fyne.Shortcut) {
	if entry.onChord != nil && entry.onChord(shortcut) {
		return
	}
	entry.Entry.TypedShortcut(shortcut)
}

// Package tui renders a surface.Header as a bubbletea program. Header
// calls that can publish on the bus or reach the gateway always run as
// tea.Cmds: a header change re-enters the program through Send, which
// must never happen on the Update goroutine.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/model"
	"timerbar/internal/core/surface"
	"timerbar/internal/gateway/memory"
)

// maxEntries is how many recorded entries the list shows.
const maxEntries = 8

// ViewMsg carries a fresh header view into the program.
type ViewMsg struct {
	View surface.View
}

// NoticeMsg carries a header notification into the program.
type NoticeMsg struct {
	Level   surface.Level
	Message string
}

// EntriesMsg carries the reloaded timesheet list.
type EntriesMsg struct {
	Entries []memory.Entry
}

type mountedMsg struct{ err error }

type optionsMsg struct {
	options surface.Options
	err     error
}

type tasksMsg struct {
	tasks []model.Task
	err   error
}

type actionDoneMsg struct {
	err         error
	reloadTasks bool
}

// EntryLister lists recorded time entries, newest first.
type EntryLister interface {
	Entries() []memory.Entry
}

// Config wires a Model.
type Config struct {
	Header   *surface.Header
	List     *surface.TimesheetList
	Activity *idle.ManualSource
	Clock    clock.Clock
	Keys     KeyMap
	Context  context.Context
}

// Model is the bubbletea model of the terminal timer.
type Model struct {
	header   *surface.Header
	list     *surface.TimesheetList
	activity *idle.ManualSource
	clock    clock.Clock
	keys     KeyMap
	ctx      context.Context

	view    surface.View
	options surface.Options
	tasks   []model.Task
	entries []memory.Entry
	notice  NoticeMsg
	editing bool
	input   textinput.Model
	help    help.Model
	width   int
}

// New creates a Model. The header is mounted from Init.
func New(config Config) Model {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if len(config.Keys.Toggle.Keys()) == 0 {
		config.Keys = DefaultKeyMap
	}
	input := textinput.New()
	input.Placeholder = "What are you working on?"
	input.CharLimit = 200
	return Model{
		header:   config.Header,
		list:     config.List,
		activity: config.Activity,
		clock:    config.Clock,
		keys:     config.Keys,
		ctx:      config.Context,
		view:     config.Header.View(),
		input:    input,
		help:     help.New(),
	}
}

// Notifier forwards header notices into a program as NoticeMsg.
func Notifier(send func(tea.Msg)) surface.Notifier {
	return surface.NotifierFunc(func(level surface.Level, message string) {
		send(NoticeMsg{Level: level, Message: message})
	})
}

// OnChange forwards header views into a program as ViewMsg.
func OnChange(send func(tea.Msg)) func(surface.View) {
	return func(view surface.View) {
		send(ViewMsg{View: view})
	}
}

// EntriesView is a DataView that sends lister's entries as EntriesMsg.
func EntriesView(lister EntryLister, send func(tea.Msg)) surface.DataView {
	return surface.DataViewFunc(func(context.Context) error {
		send(EntriesMsg{Entries: lister.Entries()})
		return nil
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.mount(), m.loadOptions())
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width = message.Width
		m.help.Width = message.Width
		return m, nil
	case ViewMsg:
		m.view = message.View
		return m, nil
	case NoticeMsg:
		m.notice = message
		return m, nil
	case EntriesMsg:
		m.entries = message.Entries
		return m, nil
	case mountedMsg:
		m.view = m.header.View()
		if message.err != nil {
			m.notice = NoticeMsg{Level: surface.LevelDanger, Message: fmt.Sprintf("Failed to load timer: %v", message.err)}
		}
		return m, m.loadTasks()
	case optionsMsg:
		if message.err != nil {
			m.notice = NoticeMsg{Level: surface.LevelWarning, Message: fmt.Sprintf("Failed to load options: %v", message.err)}
			return m, nil
		}
		m.options = message.options
		return m, nil
	case tasksMsg:
		if message.err == nil {
			m.tasks = message.tasks
		}
		return m, nil
	case actionDoneMsg:
		m.view = m.header.View()
		if message.reloadTasks {
			return m, m.loadTasks()
		}
		return m, nil
	case tea.KeyMsg:
		m.touch()
		return m.handleKey(message)
	}
	return m, nil
}

func (m Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch {
		case key.Matches(message, m.keys.Submit):
			description := m.input.Value()
			m.editing = false
			m.input.Blur()
			return m, m.action(false, func() error {
				m.header.SetDescription(description)
				_, err := m.header.SubmitDescription(m.ctx)
				return err
			})
		case key.Matches(message, m.keys.Cancel):
			m.editing = false
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(message)
		return m, cmd
	}

	if key.Matches(message, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.view.IdleVisible {
		switch {
		case key.Matches(message, m.keys.Keep):
			return m, m.action(false, m.header.KeepIdle)
		case key.Matches(message, m.keys.Discard):
			return m, m.action(false, func() error { return m.header.DiscardIdle(m.ctx) })
		case key.Matches(message, m.keys.StopAndKeep):
			return m, m.action(false, func() error { return m.header.StopAndKeepIdle(m.ctx) })
		}
		return m, nil
	}

	switch {
	case key.Matches(message, m.keys.Toggle):
		return m, m.action(false, func() error { return m.header.Toggle(m.ctx) })
	case key.Matches(message, m.keys.Edit):
		m.editing = true
		m.input.SetValue(m.view.Draft.Description)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(message, m.keys.Project):
		project, ok := next(m.options.Projects, func(project model.Project) bool {
			return project.ID == m.view.Draft.ProjectID
		})
		if !ok {
			return m, nil
		}
		return m, m.action(true, func() error {
			m.header.SelectProject(project)
			return nil
		})
	case key.Matches(message, m.keys.Task):
		task, ok := next(m.tasks, func(task model.Task) bool {
			return task.ID == m.view.Draft.TaskID
		})
		if !ok {
			return m, nil
		}
		return m, m.action(false, func() error { return m.header.SelectTask(task) })
	case key.Matches(message, m.keys.Tag):
		index := int(message.Runes[0] - '1')
		if index < 0 || index >= len(m.options.Tags) {
			return m, nil
		}
		tag := m.options.Tags[index]
		return m, m.action(false, func() error {
			m.header.ToggleTag(tag)
			return nil
		})
	case key.Matches(message, m.keys.Favorite):
		favorite, ok := next(m.options.Favorites, func(favorite model.Favorite) bool {
			return favorite.Description == m.view.Draft.Description && favorite.ProjectID == m.view.Draft.ProjectID
		})
		if !ok {
			return m, nil
		}
		return m, m.action(true, func() error {
			m.header.ApplyFavorite(m.ctx, favorite)
			return nil
		})
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var builder strings.Builder

	if m.view.Running {
		builder.WriteString(titleStyle.Render(m.view.Title))
	} else {
		builder.WriteString(titleStyle.Render(surface.DefaultTitle))
		builder.WriteString("  ")
		builder.WriteString(mutedStyle.Render("0:00:00 stopped"))
	}
	builder.WriteString("\n\n")

	draft := m.view.Draft
	if m.editing {
		builder.WriteString("Description: " + m.input.View())
	} else {
		builder.WriteString("Description: " + orNone(draft.Description))
	}
	builder.WriteString("\n")
	builder.WriteString("Project: " + orNone(draft.ProjectName) + "   Task: " + orNone(draft.TaskName))
	builder.WriteString("\n")
	builder.WriteString("Tags:")
	for index, tag := range m.options.Tags {
		mark := "[ ]"
		if draft.HasTag(tag.ID) {
			mark = "[x]"
		}
		fmt.Fprintf(&builder, " %d%s %s", index+1, mark, tag.Name)
	}
	builder.WriteString("\n")

	if m.notice.Message != "" {
		builder.WriteString("\n")
		builder.WriteString(noticeStyle(m.notice.Level).Render(m.notice.Message))
		builder.WriteString("\n")
	}

	if m.view.IdleVisible {
		builder.WriteString("\n")
		prompt := "Idle time detected\nYou have been idle for " + m.view.IdleText + "."
		builder.WriteString(promptStyle.Render(prompt))
		builder.WriteString("\n")
	}

	if len(m.entries) > 0 {
		builder.WriteString("\n")
		builder.WriteString(headingStyle.Render("Recent entries"))
		builder.WriteString("\n")
		for index, entry := range m.entries {
			if index == maxEntries {
				break
			}
			builder.WriteString(entryLine(entry))
			builder.WriteString("\n")
		}
	}

	builder.WriteString("\n")
	switch {
	case m.editing:
		builder.WriteString(m.help.ShortHelpView(m.keys.editHelp()))
	case m.view.IdleVisible:
		builder.WriteString(m.help.ShortHelpView(m.keys.idleHelp()))
	default:
		builder.WriteString(m.help.View(m.keys))
	}
	return builder.String()
}

func (m Model) mount() tea.Cmd {
	return func() tea.Msg {
		err := m.header.Mount(m.ctx)
		if m.list != nil {
			if listErr := m.list.Mount(m.ctx); err == nil {
				err = listErr
			}
		}
		return mountedMsg{err: err}
	}
}

func (m Model) loadOptions() tea.Cmd {
	return func() tea.Msg {
		options, err := m.header.Options(m.ctx)
		return optionsMsg{options: options, err: err}
	}
}

func (m Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.header.Tasks(m.ctx)
		return tasksMsg{tasks: tasks, err: err}
	}
}

// action runs fn off the Update goroutine. Failures are already shown
// through the header's notifier.
func (m Model) action(reloadTasks bool, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn(), reloadTasks: reloadTasks}
	}
}

func (m Model) touch() {
	if m.activity != nil {
		m.activity.Emit(model.Activity{Kind: model.ActivityKeyPress, At: m.clock.Now()})
	}
}

// next returns the item after the first one matching current, wrapping
// around. With no match it returns the first item.
func next[T any](items []T, current func(T) bool) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	for index, item := range items {
		if current(item) {
			return items[(index+1)%len(items)], true
		}
	}
	return items[0], true
}

func entryLine(entry memory.Entry) string {
	duration := fmt.Sprintf("%6.2fh", entry.DurationHours)
	if entry.Running {
		duration = runningStyle.Render("running")
	}
	description := entry.Record.Description
	if description == "/" {
		description = ""
	}
	return fmt.Sprintf("  %-18s %-16s %7s  %s",
		truncate(entry.Record.ProjectName, 18),
		truncate(entry.Record.TaskName, 16),
		duration,
		description,
	)
}

func orNone(value string) string {
	if value == "" || value == "/" {
		return mutedStyle.Render("none")
	}
	return value
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e8be42"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#27ae60"))
	promptStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#e8be42")).
			Padding(0, 1)
)

func noticeStyle(level surface.Level) lipgloss.Style {
	switch level {
	case surface.LevelDanger:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
	case surface.LevelWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12"))
	case surface.LevelSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#27ae60"))
	default:
		return lipgloss.NewStyle()
	}
}

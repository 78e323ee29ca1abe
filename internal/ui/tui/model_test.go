package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/model"
	"timerbar/internal/core/surface"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/gateway/memory"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// sink collects what a running program would receive through Send.
type sink struct {
	mu       sync.Mutex
	messages []tea.Msg
}

func (s *sink) send(message tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *sink) take() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := s.messages
	s.messages = nil
	return messages
}

type fixture struct {
	clock    *clock.Fake
	gateway  *memory.Gateway
	bus      *syncbus.Bus
	activity *idle.ManualSource
	sink     *sink
	header   *surface.Header
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := clock.NewFake(t0)
	f := &fixture{
		clock:    fake,
		gateway:  memory.NewSeeded(fake),
		bus:      syncbus.New(),
		activity: idle.NewManualSource(),
		sink:     &sink{},
	}
	f.header = surface.NewHeader(surface.HeaderConfig{
		Gateway:  f.gateway,
		Catalog:  f.gateway,
		Bus:      f.bus,
		Clock:    fake,
		Notifier: Notifier(f.sink.send),
		Activity: f.activity,
		Origin:   "tui",
	})
	t.Cleanup(f.header.Unmount)
	return f
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	list := surface.NewTimesheetList(surface.ListConfig{View: EntriesView(f.gateway, f.sink.send), Bus: f.bus})
	t.Cleanup(list.Unmount)
	m := New(Config{Header: f.header, List: list, Activity: f.activity, Clock: f.clock})
	return f.flush(t, drain(t, m, m.Init()))
}

// flush feeds everything the header and list sent back into m.
func (f *fixture) flush(t *testing.T, m Model) Model {
	t.Helper()
	for _, message := range f.sink.take() {
		updated, _ := m.Update(message)
		m = updated.(Model)
	}
	return m
}

// drain runs cmd and every command it produces, feeding the messages
// back into m.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "command chain did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch message := next().(type) {
		case nil, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, message...)
		default:
			updated, produced := m.Update(message)
			m = updated.(Model)
			queue = append(queue, produced)
		}
	}
	return m
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	message := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	if keys == " " {
		message = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	updated, cmd := m.Update(message)
	return drain(t, updated.(Model), cmd)
}

func TestInitMountsAndLoads(t *testing.T) {
	f := newFixture(t)
	_, err := f.gateway.StartTimer(context.Background(), model.StartRequest{Description: "Write report", ProjectID: 7})
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	m := f.model(t)

	require.True(t, m.view.Running)
	require.Equal(t, "⏱ 0:00:05 - Write report", m.view.Title)
	require.Len(t, m.options.Projects, 2)
	require.Len(t, m.tasks, 2)
	require.Len(t, m.entries, 1)
	rendered := m.View()
	require.Contains(t, rendered, "Write report")
	require.Contains(t, rendered, "Recent entries")
	require.Contains(t, rendered, "running")
}

func TestToggleStartsAndStops(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m = press(t, m, "p")
	require.Equal(t, "Customer Portal", m.view.Draft.ProjectName)
	m = press(t, m, "p")
	require.Equal(t, "Internal", m.view.Draft.ProjectName)
	require.Len(t, m.tasks, 2)

	m = press(t, m, " ")
	require.True(t, m.view.Running)
	f.clock.Advance(90 * time.Minute)

	m = f.flush(t, press(t, m, " "))
	require.False(t, m.view.Running)
	require.Equal(t, "Internal", m.view.Draft.ProjectName)

	entries := f.gateway.Entries()
	require.Len(t, entries, 1)
	require.False(t, entries[0].Running)
	require.InDelta(t, 1.5, entries[0].DurationHours, 1e-9)
	require.Len(t, m.entries, 1)
	require.Contains(t, m.View(), "1.50h")
}

func TestStartWithoutProjectShowsWarning(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m = f.flush(t, press(t, m, " "))

	require.False(t, m.view.Running)
	require.Equal(t, surface.LevelWarning, m.notice.Level)
	require.Contains(t, m.View(), "Please select a project first.")
}

func TestTaskAndTagKeys(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m = press(t, m, "p")
	m = press(t, m, "p")

	m = press(t, m, "t")
	require.Equal(t, "Code review", m.view.Draft.TaskName)
	m = press(t, m, "t")
	require.Equal(t, "Planning", m.view.Draft.TaskName)

	m = press(t, m, "1")
	require.True(t, m.view.Draft.HasTag(1))
	require.Contains(t, m.View(), "1[x] billable")
	m = press(t, m, "1")
	require.False(t, m.view.Draft.HasTag(1))

	m = press(t, m, "9")
	require.Empty(t, m.view.Draft.TagIDs)
}

func TestFavoriteKeyAppliesFavorite(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m = press(t, m, "f")

	require.Equal(t, "Daily standup", m.view.Draft.Description)
	require.Equal(t, int64(7), m.view.Draft.ProjectID)
	require.True(t, m.view.Draft.HasTag(2))
	require.Len(t, m.tasks, 2)
}

func TestEditSubmitStartsTimer(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m = press(t, m, "p")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	m = updated.(Model)
	require.True(t, m.editing)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Review")})
	m = updated.(Model)
	require.Contains(t, m.View(), "Review")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, updated.(Model), cmd)

	require.False(t, m.editing)
	require.True(t, m.view.Running)
	require.Equal(t, "Review", m.view.Draft.Description)
}

func TestEditCancelKeepsDescription(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Draft")})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	require.False(t, m.editing)
	require.Empty(t, m.view.Draft.Description)
}

func TestIdlePromptDiscard(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m = press(t, m, "p")
	m = press(t, m, " ")
	require.True(t, m.view.Running)

	f.clock.Advance(60 * time.Second)
	m = press(t, m, "x")
	f.clock.Advance(610 * time.Second)
	updated, _ := m.Update(ViewMsg{View: f.header.View()})
	m = updated.(Model)

	require.True(t, m.view.IdleVisible)
	require.Contains(t, m.View(), "You have been idle for 10 minutes.")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.Nil(t, cmd)
	m = updated.(Model)

	m = f.flush(t, press(t, m, "d"))

	require.False(t, m.view.Running)
	require.False(t, m.view.IdleVisible)
	require.Equal(t, "Timer stopped. Idle time discarded.", m.notice.Message)
	entries := f.gateway.Entries()
	require.Len(t, entries, 1)
	require.InDelta(t, 60.0/3600.0, entries[0].DurationHours, 1e-9)
}

func TestIdlePromptKeep(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m = press(t, m, "p")
	m = press(t, m, " ")
	f.clock.Advance(600 * time.Second)
	updated, _ := m.Update(ViewMsg{View: f.header.View()})
	m = updated.(Model)
	require.True(t, m.view.IdleVisible)

	m = press(t, m, "k")

	require.True(t, m.view.Running)
	require.False(t, m.view.IdleVisible)
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
}

func TestNextWraps(t *testing.T) {
	items := []int{1, 2, 3}
	is := func(value int) func(int) bool { return func(item int) bool { return item == value } }

	value, ok := next(items, is(3))
	require.True(t, ok)
	require.Equal(t, 1, value)

	value, _ = next(items, is(0))
	require.Equal(t, 1, value)

	_, ok = next([]int(nil), is(1))
	require.False(t, ok)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.True(t, strings.HasSuffix(truncate("Customer Portal project", 10), "…"))
	require.Len(t, []rune(truncate("Customer Portal project", 10)), 10)
}

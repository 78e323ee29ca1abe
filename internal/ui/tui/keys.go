package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the terminal timer.
type KeyMap struct {
	Toggle   key.Binding
	Edit     key.Binding
	Project  key.Binding
	Task     key.Binding
	Tag      key.Binding
	Favorite key.Binding

	// Idle prompt; only active while it is showing.
	Keep        key.Binding
	Discard     key.Binding
	StopAndKeep key.Binding

	// Description editor.
	Submit key.Binding
	Cancel key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Terminals cannot
// report Ctrl+Shift+T, so the global chord is Ctrl+T here.
var DefaultKeyMap = KeyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "ctrl+t"),
		key.WithHelp("space", "start/stop"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "i"),
		key.WithHelp("e", "describe"),
	),
	Project: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "next project"),
	),
	Task: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "next task"),
	),
	Tag: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "toggle tag"),
	),
	Favorite: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "next favorite"),
	),
	Keep: key.NewBinding(
		key.WithKeys("k"),
		key.WithHelp("k", "keep idle time"),
	),
	Discard: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "discard idle time"),
	),
	StopAndKeep: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop and keep"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Toggle, keys.Edit, keys.Project, keys.Task, keys.Tag, keys.Favorite, keys.Quit}
}

// FullHelp implements help.KeyMap.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		keys.ShortHelp(),
		{keys.Keep, keys.Discard, keys.StopAndKeep},
	}
}

func (keys KeyMap) idleHelp() []key.Binding {
	return []key.Binding{keys.Keep, keys.Discard, keys.StopAndKeep}
}

func (keys KeyMap) editHelp() []key.Binding {
	return []key.Binding{keys.Submit, keys.Cancel}
}

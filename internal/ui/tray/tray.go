// Package tray shows the running timer in the system tray.
package tray

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"timerbar/internal/core/surface"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow        func()
	OnToggle      func()
	OnPreferences func()
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app        desktop.App
	callbacks  Callbacks
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem
	running    bool
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}
	manager.statusItem = fyne.NewMenuItem("No timer running", nil)
	manager.statusItem.Disabled = true
	manager.toggleItem = fyne.NewMenuItem("Start timer", func() {
		call(manager.callbacks.OnToggle)
	})

	app.SetSystemTrayIcon(theme.MediaRecordIcon())
	manager.refreshMenu()
	return manager
}

// SetView mirrors a header view into the status line and toggle item.
func (manager *Manager) SetView(view surface.View) {
	if view.Running {
		manager.statusItem.Label = view.Title
		manager.toggleItem.Label = "Stop timer"
	} else {
		manager.statusItem.Label = "No timer running"
		manager.toggleItem.Label = "Start timer"
	}
	if view.IdleVisible {
		manager.statusItem.Label += " (idle " + view.IdleText + ")"
	}
	if view.Running != manager.running {
		manager.running = view.Running
		if view.Running {
			manager.app.SetSystemTrayIcon(theme.MediaPlayIcon())
		} else {
			manager.app.SetSystemTrayIcon(theme.MediaRecordIcon())
		}
	}
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("Timer Bar",
		manager.statusItem,
		fyne.NewMenuItem("Show", func() { call(manager.callbacks.OnShow) }),
		manager.toggleItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Settings", func() { call(manager.callbacks.OnPreferences) }),
		fyne.NewMenuItem("Quit", func() { call(manager.callbacks.OnQuit) }),
	))
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

package preferences

import (
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the preferences UI.
type Window struct {
	window        fyne.Window
	settings      Settings
	onSave        func(Settings)
	serverURL     *widget.Entry
	sessionID     *widget.Entry
	idleCheck     *widget.Check
	idleMinutes   *widget.Entry
	checkSeconds  *widget.Entry
	debounceMilli *widget.Entry
	shortcut      *widget.Entry
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("Timer Bar Settings")

	prefs := &Window{
		window:        window,
		onSave:        onSave,
		serverURL:     widget.NewEntry(),
		sessionID:     widget.NewPasswordEntry(),
		idleCheck:     widget.NewCheck("Ask what to do after idle time", nil),
		idleMinutes:   widget.NewEntry(),
		checkSeconds:  widget.NewEntry(),
		debounceMilli: widget.NewEntry(),
		shortcut:      widget.NewEntry(),
	}
	prefs.serverURL.SetPlaceHolder("https://erp.example.com")
	prefs.UpdateSettings(settings)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Server", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewForm(
			widget.NewFormItem("URL", prefs.serverURL),
			widget.NewFormItem("Session", prefs.sessionID),
		),
		widget.NewLabelWithStyle("Idle detection", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.idleCheck,
		container.NewHBox(widget.NewLabel("Idle after"), prefs.idleMinutes, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Check every"), prefs.checkSeconds, widget.NewLabel("sec")),
		widget.NewLabelWithStyle("Editing", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Save edits after"), prefs.debounceMilli, widget.NewLabel("ms")),
		container.NewHBox(widget.NewLabel("Start/stop shortcut"), prefs.shortcut),
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", window.Hide)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(440, 420))
	window.SetCloseIntercept(window.Hide)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.serverURL.SetText(settings.ServerURL)
	prefs.sessionID.SetText(settings.SessionID)
	prefs.idleCheck.SetChecked(settings.IdleEnabled)
	prefs.idleMinutes.SetText(strconv.Itoa(int(settings.IdleThreshold / time.Minute)))
	prefs.checkSeconds.SetText(strconv.Itoa(int(settings.IdleCheckInterval / time.Second)))
	prefs.debounceMilli.SetText(strconv.Itoa(int(settings.DebounceDelay / time.Millisecond)))
	prefs.shortcut.SetText(settings.Shortcut)
}

func (prefs *Window) handleSave() {
	settings := prefs.settings
	settings.ServerURL = strings.TrimSpace(prefs.serverURL.Text)
	settings.SessionID = strings.TrimSpace(prefs.sessionID.Text)
	settings.IdleEnabled = prefs.idleCheck.Checked
	if minutes, ok := parsePositiveInt(prefs.idleMinutes.Text); ok {
		settings.IdleThreshold = time.Duration(minutes) * time.Minute
	}
	if seconds, ok := parsePositiveInt(prefs.checkSeconds.Text); ok {
		settings.IdleCheckInterval = time.Duration(seconds) * time.Second
	}
	if millis, ok := parsePositiveInt(prefs.debounceMilli.Text); ok {
		settings.DebounceDelay = time.Duration(millis) * time.Millisecond
	}
	settings.Shortcut = strings.TrimSpace(prefs.shortcut.Text)

	if err := settings.Validate(); err != nil {
		dialog.ShowError(err, prefs.window)
		return
	}

	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

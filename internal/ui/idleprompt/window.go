// Package idleprompt shows the idle resolution dialog of the desktop
// surface.
package idleprompt

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"timerbar/internal/core/surface"
)

// Actions are the three resolutions the prompt offers.
type Actions struct {
	OnKeep        func()
	OnDiscard     func()
	OnStopAndKeep func()
}

// Window manages the idle prompt UI.
type Window struct {
	window      fyne.Window
	titleLabel  *canvas.Text
	idleLabel   *canvas.Text
	keepButton  *widget.Button
	discard     *widget.Button
	stopAndKeep *widget.Button
	visible     bool
}

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates a hidden idle prompt.
func New(app fyne.App, actions Actions) *Window {
	window := app.NewWindow("Idle time detected")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Undecorated so it cannot be closed without choosing.
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	titleLabel := canvas.NewText("Idle time detected", color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	titleLabel.TextSize = 18

	idleLabel := canvas.NewText("", color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	idleLabel.TextSize = 14

	prompt := &Window{
		window:      window,
		titleLabel:  titleLabel,
		idleLabel:   idleLabel,
		keepButton:  widget.NewButton("Keep idle time", actions.OnKeep),
		discard:     widget.NewButton("Discard idle time", actions.OnDiscard),
		stopAndKeep: widget.NewButton("Stop and keep", actions.OnStopAndKeep),
	}
	prompt.discard.Importance = widget.HighImportance

	background := canvas.NewRectangle(color.NRGBA{R: 0, G: 0, B: 0, A: 230})
	buttons := container.NewGridWithColumns(3, prompt.keepButton, prompt.discard, prompt.stopAndKeep)
	content := container.NewPadded(container.NewVBox(titleLabel, idleLabel, buttons))
	window.SetContent(container.NewStack(background, content))
	window.SetCloseIntercept(func() {})
	return prompt
}

// Update shows the prompt while view has a pending idle event and hides
// it otherwise.
func (prompt *Window) Update(view surface.View) {
	if !view.IdleVisible {
		if prompt.visible {
			prompt.visible = false
			prompt.window.Hide()
		}
		return
	}
	prompt.idleLabel.Text = "You have been idle for " + view.IdleText + "."
	prompt.idleLabel.Refresh()
	if prompt.visible {
		return
	}
	prompt.visible = true
	prompt.window.Show()
	prompt.window.CenterOnScreen()
	prompt.window.RequestFocus()
}

// Visible reports whether the prompt is showing.
func (prompt *Window) Visible() bool {
	return prompt.visible
}

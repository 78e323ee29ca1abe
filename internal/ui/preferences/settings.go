package preferences

import (
	"fmt"
	"time"

	"timerbar/internal/core/model"
	"timerbar/internal/core/surface"
)

// Allowed ranges for editable durations.
const (
	MinIdleThreshold     = time.Minute
	MaxIdleThreshold     = 4 * time.Hour
	MinIdleCheckInterval = 5 * time.Second
	MaxIdleCheckInterval = 5 * time.Minute
	MaxDebounceDelay     = 5 * time.Second
)

// Settings defines editable user preferences.
type Settings struct {
	ServerURL string
	SessionID string

	IdleEnabled       bool
	IdleThreshold     time.Duration
	IdleCheckInterval time.Duration
	DebounceDelay     time.Duration

	Shortcut string
}

// DefaultSettings returns default settings for Timer Bar.
func DefaultSettings() Settings {
	return Settings{
		IdleEnabled:       true,
		IdleThreshold:     model.DefaultIdleThreshold,
		IdleCheckInterval: model.DefaultIdleCheckInterval,
		DebounceDelay:     model.DefaultDebounceDelay,
		Shortcut:          surface.DefaultShortcut.String(),
	}
}

// Validate reports the first out-of-range value.
func (settings Settings) Validate() error {
	if settings.IdleThreshold < MinIdleThreshold || settings.IdleThreshold > MaxIdleThreshold {
		return fmt.Errorf("idle threshold %s outside %s..%s", settings.IdleThreshold, MinIdleThreshold, MaxIdleThreshold)
	}
	if settings.IdleCheckInterval < MinIdleCheckInterval || settings.IdleCheckInterval > MaxIdleCheckInterval {
		return fmt.Errorf("idle check interval %s outside %s..%s", settings.IdleCheckInterval, MinIdleCheckInterval, MaxIdleCheckInterval)
	}
	if settings.DebounceDelay < model.MinDebounceDelay || settings.DebounceDelay > MaxDebounceDelay {
		return fmt.Errorf("debounce delay %s outside %s..%s", settings.DebounceDelay, model.MinDebounceDelay, MaxDebounceDelay)
	}
	if _, err := surface.ParseShortcut(settings.Shortcut); err != nil {
		return err
	}
	return nil
}

// EngineConfig converts settings to the engine's runtime config.
func (settings Settings) EngineConfig() model.EngineConfig {
	return model.EngineConfig{
		TickInterval:      model.DefaultTickInterval,
		IdleDisabled:      !settings.IdleEnabled,
		IdleThreshold:     settings.IdleThreshold,
		IdleCheckInterval: settings.IdleCheckInterval,
		DebounceDelay:     settings.DebounceDelay,
		WriteTimeout:      model.DefaultWriteTimeout,
	}.WithDefaults()
}

// ShortcutValue parses Shortcut, falling back to the default chord.
func (settings Settings) ShortcutValue() surface.Shortcut {
	shortcut, err := surface.ParseShortcut(settings.Shortcut)
	if err != nil {
		return surface.DefaultShortcut
	}
	return shortcut
}

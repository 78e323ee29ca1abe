// Package storage persists user preferences as YAML under the OS config
// directory and watches the file for external edits.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"timerbar/internal/core/model"
	"timerbar/internal/core/surface"
	"timerbar/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	ServerURL                string `yaml:"server_url"`
	SessionID                string `yaml:"session_id"`
	IdleEnabled              *bool  `yaml:"idle_enabled"`
	IdleThresholdMinutes     int    `yaml:"idle_threshold_minutes"`
	IdleCheckIntervalSeconds int    `yaml:"idle_check_interval_seconds"`
	DebounceMillis           int    `yaml:"debounce_ms"`
	Shortcut                 string `yaml:"shortcut"`
}

// SettingsPath returns where appName keeps its settings file.
func SettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettings reads user preferences for appName.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	configPath, err := SettingsPath(appName)
	if err != nil {
		return preferences.DefaultSettings(), err
	}
	return LoadSettingsFile(configPath)
}

// LoadSettingsFile reads preferences from configPath. Values outside
// their allowed range keep the default.
func LoadSettingsFile(configPath string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()
	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettingsFile writes preferences to configPath.
func SaveSettingsFile(configPath string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	idleEnabled := settings.IdleEnabled
	fileData := yamlSettings{
		ServerURL:                settings.ServerURL,
		SessionID:                settings.SessionID,
		IdleEnabled:              &idleEnabled,
		IdleThresholdMinutes:     int(settings.IdleThreshold / time.Minute),
		IdleCheckIntervalSeconds: int(settings.IdleCheckInterval / time.Second),
		DebounceMillis:           int(settings.DebounceDelay / time.Millisecond),
		Shortcut:                 settings.Shortcut,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	// The file holds a session cookie.
	if err := os.WriteFile(configPath, serialized, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	settings.ServerURL = fileData.ServerURL
	settings.SessionID = fileData.SessionID
	if fileData.IdleEnabled != nil {
		settings.IdleEnabled = *fileData.IdleEnabled
	}

	threshold := time.Duration(fileData.IdleThresholdMinutes) * time.Minute
	if threshold >= preferences.MinIdleThreshold && threshold <= preferences.MaxIdleThreshold {
		settings.IdleThreshold = threshold
	}
	checkInterval := time.Duration(fileData.IdleCheckIntervalSeconds) * time.Second
	if checkInterval >= preferences.MinIdleCheckInterval && checkInterval <= preferences.MaxIdleCheckInterval {
		settings.IdleCheckInterval = checkInterval
	}
	debounce := time.Duration(fileData.DebounceMillis) * time.Millisecond
	if debounce >= model.MinDebounceDelay && debounce <= preferences.MaxDebounceDelay {
		settings.DebounceDelay = debounce
	}
	if _, err := surface.ParseShortcut(fileData.Shortcut); err == nil {
		settings.Shortcut = fileData.Shortcut
	}
}

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"timerbar/internal/clock"
	"timerbar/internal/core/schedule"
	"timerbar/internal/ui/preferences"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 200 * time.Millisecond

// Watch calls onChange with freshly loaded settings whenever configPath
// is written, created or renamed into place, until ctx is done. The
// parent directory is watched so atomic-rename saves are seen.
func Watch(ctx context.Context, configPath string, logger *slog.Logger, onChange func(preferences.Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}
	directory := filepath.Dir(configPath)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	if err := watcher.Add(directory); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", directory, err)
	}

	reload := schedule.NewDebouncer(clock.Real(), reloadDelay)
	apply := func() {
		settings, err := LoadSettingsFile(configPath)
		if err != nil {
			logger.Warn("reload settings", "path", configPath, "error", err)
			return
		}
		logger.Info("settings reloaded", "path", configPath)
		onChange(settings)
	}

	go func() {
		defer watcher.Close()
		defer reload.Cancel()
		target := filepath.Clean(configPath)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					reload.Schedule(apply)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("settings watcher", "error", err)
			}
		}
	}()
	return nil
}

// timerbar is the desktop timer: a header window, a tray menu and an
// idle prompt over one timer Header. Without a configured server it
// runs against an in-memory timesheet.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/spf13/pflag"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/surface"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/gateway"
	"timerbar/internal/observability"
	"timerbar/internal/platform"
	"timerbar/internal/storage"
	"timerbar/internal/ui/header"
	"timerbar/internal/ui/idleprompt"
	"timerbar/internal/ui/preferences"
	"timerbar/internal/ui/tray"
)

const appName = "timerbar"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     string
		serverURL      string
		sessionID      string
		offline        bool
		metricsAddress string
		logLevel       string
	)
	flagSet := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "settings file (default: <user config dir>/timerbar/settings.yaml)")
	flagSet.StringVar(&serverURL, "server", "", "timesheet server URL (overrides settings)")
	flagSet.StringVar(&sessionID, "session", "", "server session id (overrides settings)")
	flagSet.BoolVar(&offline, "offline", false, "use the in-memory timesheet even when a server is configured")
	flagSet.StringVar(&metricsAddress, "metrics-address", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			logger.Info("timerbar is already running, raised the existing window")
			return nil
		}
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	if configPath == "" {
		configPath, err = storage.SettingsPath(appName)
		if err != nil {
			return err
		}
	}
	settings, err := storage.LoadSettingsFile(configPath)
	if err != nil {
		log.Printf("settings: %v, using defaults", err)
		settings = preferences.DefaultSettings()
	}
	if serverURL != "" {
		settings.ServerURL = serverURL
	}
	if sessionID != "" {
		settings.SessionID = sessionID
	}
	if offline {
		settings.ServerURL = ""
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if metricsAddress != "" {
		metricsServer := &http.Server{Addr: metricsAddress, Handler: observability.Handler()}
		go func() {
			logger.Info("metrics listening", "address", metricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", "error", err)
			}
		}()
		defer metricsServer.Close()
	}

	backend, err := gateway.Open(gateway.Config{
		ServerURL: settings.ServerURL,
		SessionID: settings.SessionID,
		Clock:     clock.Real(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	fyneApp := app.NewWithID("dev.timerbar.desktop")
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		return errors.New("system tray unsupported on this platform")
	}

	activity := idle.NewManualSource()
	poller := platform.NewActivityPoller(platform.NewIdleProvider(), clock.Real(), platform.DefaultPollInterval, logger)
	stopPolling := poller.Subscribe(activity.Emit)
	defer stopPolling()

	headerWindow := header.New(fyneApp, clock.Real(), activity, logger)
	var (
		timerHeader *surface.Header
		trayManager *tray.Manager
	)
	prompt := idleprompt.New(fyneApp, idleprompt.Actions{
		OnKeep: func() {
			go func() { _ = timerHeader.KeepIdle() }()
		},
		OnDiscard: func() {
			go func() { _ = timerHeader.DiscardIdle(ctx) }()
		},
		OnStopAndKeep: func() {
			go func() { _ = timerHeader.StopAndKeepIdle(ctx) }()
		},
	})

	timerHeader = surface.NewHeader(surface.HeaderConfig{
		Gateway:  backend,
		Catalog:  backend,
		Bus:      syncbus.New(),
		Logger:   logger,
		Notifier: headerWindow.Notifier(),
		Activity: activity,
		Engine:   settings.EngineConfig(),
		Shortcut: settings.ShortcutValue(),
		Origin:   "desktop-header",
		OnChange: func(view surface.View) {
			headerWindow.Render(view)
			fyne.Do(func() {
				if trayManager != nil {
					trayManager.SetView(view)
				}
				prompt.Update(view)
			})
		},
	})
	headerWindow.Attach(ctx, timerHeader, settings.ShortcutValue())

	applySettings := func(updated preferences.Settings) {
		if updated.ServerURL != settings.ServerURL || updated.SessionID != settings.SessionID {
			logger.Warn("server settings change takes effect after restart")
		}
		timerHeader.ApplySettings(updated.EngineConfig(), updated.ShortcutValue())
		fyne.Do(func() {
			headerWindow.SetShortcut(updated.ShortcutValue())
		})
	}
	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		if err := storage.SaveSettingsFile(configPath, updated); err != nil {
			logger.Error("save settings", "path", configPath, "error", err)
		}
		applySettings(updated)
	})

	go func() {
		err := storage.Watch(ctx, configPath, logger, func(updated preferences.Settings) {
			applySettings(updated)
			fyne.Do(func() {
				prefsWindow.UpdateSettings(updated)
			})
		})
		if err != nil {
			logger.Warn("settings watcher stopped", "error", err)
		}
	}()

	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnShow: headerWindow.Show,
		OnToggle: func() {
			go func() { _ = timerHeader.Toggle(ctx) }()
		},
		OnPreferences: prefsWindow.Show,
		OnQuit:        fyneApp.Quit,
	})
	desktopApp.SetSystemTrayWindow(headerWindow.Window())
	guard.OnRaise(func() {
		fyne.Do(headerWindow.Show)
	})

	go func() {
		if err := timerHeader.Mount(ctx); err != nil {
			logger.Warn("load running timer", "error", err)
		}
		if err := headerWindow.LoadOptions(ctx); err != nil {
			logger.Warn("load timer options", "error", err)
		}
	}()

	headerWindow.Show()
	fyneApp.Run()

	timerHeader.Unmount()
	return nil
}

// timerbar-tui is the terminal timer. It mounts a timer Header and a
// recorded-entries list on one bus, so starting or stopping from the
// header refreshes the list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"timerbar/internal/clock"
	"timerbar/internal/core/idle"
	"timerbar/internal/core/surface"
	"timerbar/internal/core/syncbus"
	"timerbar/internal/gateway"
	"timerbar/internal/observability"
	"timerbar/internal/storage"
	"timerbar/internal/ui/preferences"
	"timerbar/internal/ui/tui"
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
		logOutput      string
		logLevel       string
	)
	flagSet := pflag.NewFlagSet("timerbar-tui", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "settings file (default: <user config dir>/timerbar/settings.yaml)")
	flagSet.StringVar(&serverURL, "server", "", "timesheet server URL (overrides settings)")
	flagSet.StringVar(&sessionID, "session", "", "server session id (overrides settings)")
	flagSet.BoolVar(&offline, "offline", false, "use the in-memory timesheet even when a server is configured")
	flagSet.StringVar(&metricsAddress, "metrics-address", "", "serve Prometheus metrics on this address")
	flagSet.StringVar(&logOutput, "log-output", "", "write log records to this file (the terminal is owned by the UI)")
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
	var logWriter io.Writer = io.Discard
	if logOutput != "" {
		file, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log output: %w", err)
		}
		defer file.Close()
		logWriter = file
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var (
		settings preferences.Settings
		err      error
	)
	if configPath == "" {
		settings, err = storage.LoadSettings(appName)
	} else {
		settings, err = storage.LoadSettingsFile(configPath)
	}
	if err != nil {
		logger.Warn("load settings, using defaults", "error", err)
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

	// Send blocks until the program runs; the header and list are
	// mounted from the model's Init, so nothing sends before that.
	var program *tea.Program
	send := func(message tea.Msg) { program.Send(message) }

	bus := syncbus.New()
	activity := idle.NewManualSource()
	timerHeader := surface.NewHeader(surface.HeaderConfig{
		Gateway:  backend,
		Catalog:  backend,
		Bus:      bus,
		Logger:   logger,
		Notifier: tui.Notifier(send),
		Activity: activity,
		Engine:   settings.EngineConfig(),
		Shortcut: settings.ShortcutValue(),
		Origin:   "terminal-header",
		OnChange: tui.OnChange(send),
	})
	defer timerHeader.Unmount()

	var list *surface.TimesheetList
	if lister, ok := backend.(tui.EntryLister); ok {
		list = surface.NewTimesheetList(surface.ListConfig{
			View:   tui.EntriesView(lister, send),
			Bus:    bus,
			Logger: logger,
		})
		defer list.Unmount()
	}

	model := tui.New(tui.Config{
		Header:   timerHeader,
		List:     list,
		Activity: activity,
		Context:  ctx,
	})
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

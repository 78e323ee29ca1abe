// Package gateway picks the timer backend a binary talks to.
package gateway

import (
	"fmt"
	"log/slog"

	"timerbar/internal/clock"
	"timerbar/internal/core/timer"
	"timerbar/internal/gateway/jsonrpc"
	"timerbar/internal/gateway/memory"
)

// Backend serves both the timer operations and the pickers' catalog.
type Backend interface {
	timer.Gateway
	timer.Catalog
}

// Config selects and configures a Backend.
type Config struct {
	// ServerURL is the timesheet server. Empty selects the in-memory
	// demo backend.
	ServerURL string
	SessionID string
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Open creates the configured backend.
func Open(config Config) (Backend, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ServerURL == "" {
		config.Logger.Info("no server configured, using in-memory timesheet")
		return memory.NewSeeded(config.Clock), nil
	}
	client, err := jsonrpc.NewClient(jsonrpc.Config{
		BaseURL:   config.ServerURL,
		SessionID: config.SessionID,
		Logger:    config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open gateway: %w", err)
	}
	return client, nil
}

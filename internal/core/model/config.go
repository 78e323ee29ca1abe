package model

import "time"

const (
	DefaultTickInterval      = time.Second
	DefaultIdleThreshold     = 10 * time.Minute
	DefaultIdleCheckInterval = 30 * time.Second
	DefaultDebounceDelay     = time.Second
	MinDebounceDelay         = 800 * time.Millisecond
	DefaultWriteTimeout      = 15 * time.Second
)

// EngineConfig contains runtime settings for the timer engine. The zero
// value is the default policy with idle detection on.
type EngineConfig struct {
	TickInterval      time.Duration
	IdleDisabled      bool
	IdleThreshold     time.Duration
	IdleCheckInterval time.Duration
	DebounceDelay     time.Duration
	WriteTimeout      time.Duration
}

// WithDefaults fills zero fields with the default policy values.
func (config EngineConfig) WithDefaults() EngineConfig {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.IdleThreshold <= 0 {
		config.IdleThreshold = DefaultIdleThreshold
	}
	if config.IdleCheckInterval <= 0 {
		config.IdleCheckInterval = DefaultIdleCheckInterval
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}
	if config.DebounceDelay < MinDebounceDelay {
		config.DebounceDelay = MinDebounceDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	return config
}

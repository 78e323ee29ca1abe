package platform

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"timerbar/internal/clock"
	"timerbar/internal/core/model"
	"timerbar/internal/core/schedule"
)

// DefaultPollInterval is how often the OS idle counter is sampled.
const DefaultPollInterval = 5 * time.Second

// ActivityPoller turns the OS idle counter into activity samples. It
// emits a system activity whenever the counter shows input since the
// previous poll. Polling runs only while someone is subscribed.
type ActivityPoller struct {
	mu          sync.Mutex
	provider    IdleProvider
	clock       clock.Clock
	logger      *slog.Logger
	interval    *schedule.Interval
	handlers    map[uint64]func(model.Activity)
	nextID      uint64
	lastIdle    time.Duration
	unsupported bool
}

// NewActivityPoller creates a poller. A nil provider uses the OS one.
func NewActivityPoller(provider IdleProvider, source clock.Clock, period time.Duration, logger *slog.Logger) *ActivityPoller {
	if provider == nil {
		provider = NewIdleProvider()
	}
	if source == nil {
		source = clock.Real()
	}
	if period <= 0 {
		period = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	poller := &ActivityPoller{
		provider: provider,
		clock:    source,
		logger:   logger,
		handlers: make(map[uint64]func(model.Activity)),
		lastIdle: -1,
	}
	poller.interval = schedule.NewInterval(source, period, poller.Poll)
	return poller
}

// Subscribe implements idle.ActivitySource.
func (poller *ActivityPoller) Subscribe(handler func(model.Activity)) func() {
	poller.mu.Lock()
	id := poller.nextID
	poller.nextID++
	poller.handlers[id] = handler
	first := len(poller.handlers) == 1
	poller.mu.Unlock()

	if first {
		poller.interval.Start()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			poller.mu.Lock()
			delete(poller.handlers, id)
			empty := len(poller.handlers) == 0
			poller.mu.Unlock()
			if empty {
				poller.interval.Stop()
			}
		})
	}
}

// Supported reports false once the provider said the OS has no idle counter.
func (poller *ActivityPoller) Supported() bool {
	poller.mu.Lock()
	defer poller.mu.Unlock()
	return !poller.unsupported
}

// Poll samples the provider once at now.
func (poller *ActivityPoller) Poll(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	idleFor, err := poller.provider.SinceLastInput(ctx)
	cancel()
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			poller.mu.Lock()
			first := !poller.unsupported
			poller.unsupported = true
			poller.mu.Unlock()
			if first {
				poller.logger.Info("system idle time unavailable, relying on window input")
			}
			poller.interval.Stop()
			return
		}
		poller.logger.Warn("read system idle time", "error", err)
		return
	}

	poller.mu.Lock()
	previous := poller.lastIdle
	poller.lastIdle = idleFor
	handlers := make([]func(model.Activity), 0, len(poller.handlers))
	for _, handler := range poller.handlers {
		handlers = append(handlers, handler)
	}
	poller.mu.Unlock()

	// A counter that went down means the user touched something. The
	// first sample only sets the baseline.
	if previous < 0 || idleFor >= previous {
		return
	}
	activity := model.Activity{Kind: model.ActivitySystem, At: now.Add(-idleFor)}
	for _, handler := range handlers {
		handler(activity)
	}
}

// Package idle detects user inactivity while a timer runs and drives the
// three-way resolution prompt.
package idle

import (
	"sync"
	"time"

	"timerbar/internal/core/model"
)

// Tracker holds the most recent qualifying activity stamp. Only the
// latest sample is kept.
type Tracker struct {
	mu   sync.Mutex
	last time.Time
}

// NewTracker creates a Tracker whose last activity is at.
func NewTracker(at time.Time) *Tracker {
	return &Tracker{last: at}
}

// Touch records activity at the given time, whether or not a timer runs.
func (tracker *Tracker) Touch(at time.Time) {
	tracker.mu.Lock()
	tracker.last = at
	tracker.mu.Unlock()
}

// Observe records an activity sample.
func (tracker *Tracker) Observe(activity model.Activity) {
	tracker.Touch(activity.At)
}

// Last returns the most recent activity stamp.
func (tracker *Tracker) Last() time.Time {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.last
}

// ActivitySource delivers qualifying user input. Handlers may be called
// from any goroutine.
type ActivitySource interface {
	Subscribe(handler func(model.Activity)) (unsubscribe func())
}

// ManualSource is an ActivitySource fed by Emit. Surfaces that receive
// input events from their toolkit forward them here.
type ManualSource struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]func(model.Activity)
	order    []uint64
}

// NewManualSource creates a source with no subscribers.
func NewManualSource() *ManualSource {
	return &ManualSource{handlers: make(map[uint64]func(model.Activity))}
}

// Subscribe implements ActivitySource.
func (source *ManualSource) Subscribe(handler func(model.Activity)) func() {
	source.mu.Lock()
	id := source.nextID
	source.nextID++
	source.handlers[id] = handler
	source.order = append(source.order, id)
	source.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			source.mu.Lock()
			defer source.mu.Unlock()
			delete(source.handlers, id)
			for i, candidate := range source.order {
				if candidate == id {
					source.order = append(source.order[:i], source.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit delivers activity to every current subscriber.
func (source *ManualSource) Emit(activity model.Activity) {
	source.mu.Lock()
	handlers := make([]func(model.Activity), 0, len(source.order))
	for _, id := range source.order {
		handlers = append(handlers, source.handlers[id])
	}
	source.mu.Unlock()

	for _, handler := range handlers {
		handler(activity)
	}
}

// Package syncbus is the session-scoped broadcast channel that keeps
// independently mounted timer surfaces converging on the same state.
package syncbus

import (
	"sync"

	"timerbar/internal/core/model"
)

// Handler receives a broadcast message.
type Handler func(message model.SyncMessage)

type subscription struct {
	id      uint64
	handler Handler
	active  bool
}

// Bus delivers timer-changed messages synchronously, in registration
// order, to every subscriber that is registered when it is reached.
// Nothing is stored: late subscribers see no replay.
type Bus struct {
	mu            sync.Mutex
	nextID        uint64
	subscriptions []*subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Topic returns the topic this bus carries.
func (bus *Bus) Topic() string {
	return model.TopicTimerChanged
}

// Subscribe registers handler. The returned function deregisters it
// and is safe to call more than once.
func (bus *Bus) Subscribe(handler Handler) func() {
	bus.mu.Lock()
	bus.nextID++
	entry := &subscription{id: bus.nextID, handler: handler, active: true}
	bus.subscriptions = append(bus.subscriptions, entry)
	bus.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			bus.remove(entry.id)
		})
	}
}

// SubscribeChan registers a channel subscriber with the given buffer.
// Sends never block; a full channel drops the message. The returned
// function deregisters and closes the channel.
func (bus *Bus) SubscribeChan(buffer int) (<-chan model.SyncMessage, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan model.SyncMessage, buffer)
	var closeMu sync.Mutex
	closed := false

	unsubscribe := bus.Subscribe(func(message model.SyncMessage) {
		closeMu.Lock()
		defer closeMu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- message:
		default:
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			closeMu.Lock()
			closed = true
			close(ch)
			closeMu.Unlock()
		})
	}
}

// Publish delivers message and returns how many handlers received it.
// Handlers run on the caller's goroutine with no bus lock held, so they
// may publish, subscribe or unsubscribe.
func (bus *Bus) Publish(message model.SyncMessage) int {
	bus.mu.Lock()
	snapshot := append([]*subscription(nil), bus.subscriptions...)
	bus.mu.Unlock()

	delivered := 0
	for _, entry := range snapshot {
		if !bus.isActive(entry) {
			continue
		}
		entry.handler(message)
		delivered++
	}
	return delivered
}

// Len returns the number of registered subscribers.
func (bus *Bus) Len() int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return len(bus.subscriptions)
}

func (bus *Bus) isActive(entry *subscription) bool {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return entry.active
}

func (bus *Bus) remove(id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, entry := range bus.subscriptions {
		if entry.id == id {
			entry.active = false
			bus.subscriptions = append(bus.subscriptions[:i], bus.subscriptions[i+1:]...)
			return
		}
	}
}

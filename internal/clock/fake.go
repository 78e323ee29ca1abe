package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Time only moves when Advance
// or Set is called.
//
// Callbacks run synchronously inside Advance. Before each callback the
// fake moves Now to that callback's deadline, so a callback that
// re-arms itself with AfterFunc schedules relative to its own fire time
// and every period inside a long Advance fires exactly once.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	callback func()
	stopped  bool
	fired    bool
}

// NewFake returns a Fake clock set to initial.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

// Now returns the current fake time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.current
}

// AfterFunc registers f to run once the clock reaches now+d. A
// non-positive d still waits for the next Advance.
func (fake *Fake) AfterFunc(d time.Duration, f func()) *Timer {
	if d < 0 {
		d = 0
	}

	fake.mu.Lock()
	waiter := &fakeWaiter{
		deadline: fake.current.Add(d),
		callback: f,
	}
	fake.waiters = append(fake.waiters, waiter)
	fake.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		if waiter.stopped || waiter.fired {
			return false
		}
		waiter.stopped = true
		return true
	}}
}

// Advance moves the clock forward by d, firing every callback whose
// deadline falls inside the window. Do not call Advance from inside a
// callback.
func (fake *Fake) Advance(d time.Duration) {
	fake.mu.Lock()
	target := fake.current.Add(d)
	fake.mu.Unlock()

	for {
		waiter := fake.popDue(target)
		if waiter == nil {
			break
		}
		waiter.callback()
	}

	fake.mu.Lock()
	if target.After(fake.current) {
		fake.current = target
	}
	fake.mu.Unlock()
}

// Set jumps the clock to at without firing anything. Use it to model
// time passing while the process was suspended.
func (fake *Fake) Set(at time.Time) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.current = at
}

// Pending returns the number of callbacks that are registered and not
// yet fired or stopped.
func (fake *Fake) Pending() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	count := 0
	for _, waiter := range fake.waiters {
		if !waiter.stopped && !waiter.fired {
			count++
		}
	}
	return count
}

// popDue removes the earliest live waiter due at or before target,
// moves the clock to its deadline and returns it. Ties keep
// registration order.
func (fake *Fake) popDue(target time.Time) *fakeWaiter {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	index := -1
	live := fake.waiters[:0]
	for _, waiter := range fake.waiters {
		if waiter.stopped || waiter.fired {
			continue
		}
		live = append(live, waiter)
	}
	fake.waiters = live

	for i, waiter := range fake.waiters {
		if waiter.deadline.After(target) {
			continue
		}
		if index == -1 || waiter.deadline.Before(fake.waiters[index].deadline) {
			index = i
		}
	}
	if index == -1 {
		return nil
	}

	waiter := fake.waiters[index]
	waiter.fired = true
	fake.waiters = append(fake.waiters[:index], fake.waiters[index+1:]...)
	if waiter.deadline.After(fake.current) {
		fake.current = waiter.deadline
	}
	return waiter
}

// Package platform wraps the OS facilities the desktop surface needs:
// system-wide input idle time and a single-instance lock.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrIdleUnsupported is returned when the OS cannot report input idle time.
var ErrIdleUnsupported = errors.New("idle detection unsupported on this platform")

// queryTimeout bounds one query of the OS idle counter.
const queryTimeout = 2 * time.Second

// IdleProvider reports how long ago the last keyboard or pointer input
// happened anywhere on the desktop.
type IdleProvider interface {
	SinceLastInput(ctx context.Context) (time.Duration, error)
}

// NewIdleProvider returns the provider for the running OS.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

type unsupportedIdleProvider struct{}

func (unsupportedIdleProvider) SinceLastInput(context.Context) (time.Duration, error) {
	return 0, ErrIdleUnsupported
}

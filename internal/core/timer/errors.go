package timer

import (
	"errors"
	"fmt"
)

// ErrNoRunningTimer is returned by gateways when an operation needs a
// running timer and the server has none.
var ErrNoRunningTimer = errors.New("no running timer")

// Gateway operation names, used in errors, logs and metrics.
const (
	OpGetRunningTimer      = "get_running_timer"
	OpStartTimer           = "start_timer"
	OpStopRunningTimer     = "stop_running_timer"
	OpAdjustDuration       = "adjust_duration"
	OpGetTimerStart        = "get_timer_start_timestamp"
	OpUpdateRunningTimer   = "update_running_timer"
	OpIncrementFavoriteUse = "increment_favorite_use"
)

// ValidationError blocks an action before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

// RemoteCallError is a failed primary start/stop/load call. Local state
// is left as it was before the call.
type RemoteCallError struct {
	Operation string
	Err       error
}

func (err *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %v", err.Operation, err.Err)
}

func (err *RemoteCallError) Unwrap() error {
	return err.Err
}

// NonCriticalRemoteError is a failed best-effort call. It is logged and
// never blocks the primary action.
type NonCriticalRemoteError struct {
	Operation string
	Err       error
}

func (err *NonCriticalRemoteError) Error() string {
	return fmt.Sprintf("%s (non-critical): %v", err.Operation, err.Err)
}

func (err *NonCriticalRemoteError) Unwrap() error {
	return err.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsRemote reports whether err is a RemoteCallError.
func IsRemote(err error) bool {
	var target *RemoteCallError
	return errors.As(err, &target)
}

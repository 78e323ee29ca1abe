package surface

import "log/slog"

// Level is the severity of a user notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Notifier shows short, non-sticky messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

// Notify implements Notifier.
func (fn NotifierFunc) Notify(level Level, message string) {
	fn(level, message)
}

// LogNotifier writes notifications to a logger. Used when a surface has
// nowhere to show them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (notifier LogNotifier) Notify(level Level, message string) {
	logger := notifier.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch level {
	case LevelDanger:
		logger.Error(message)
	case LevelWarning:
		logger.Warn(message)
	default:
		logger.Info(message)
	}
}

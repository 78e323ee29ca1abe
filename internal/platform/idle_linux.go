package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// xprintidleProvider asks the X server through the xprintidle tool.
type xprintidleProvider struct {
	path string
}

// newIdleProvider needs an X11 display and xprintidle on PATH. Wayland
// compositors do not expose a global idle counter to clients.
func newIdleProvider() IdleProvider {
	if os.Getenv("DISPLAY") == "" {
		return unsupportedIdleProvider{}
	}
	path, err := exec.LookPath("xprintidle")
	if err != nil {
		return unsupportedIdleProvider{}
	}
	return xprintidleProvider{path: path}
}

func (provider xprintidleProvider) SinceLastInput(ctx context.Context) (time.Duration, error) {
	output, err := exec.CommandContext(ctx, provider.path).Output()
	if err != nil {
		return 0, fmt.Errorf("run xprintidle: %w", err)
	}
	return parseIdleMillis(string(output))
}

// parseIdleMillis reads xprintidle's single integer of milliseconds.
func parseIdleMillis(output string) (time.Duration, error) {
	millis, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse xprintidle output %q: %w", strings.TrimSpace(output), err)
	}
	return time.Duration(max(millis, 0)) * time.Millisecond, nil
}

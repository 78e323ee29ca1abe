package platform

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ioregProvider reads HIDIdleTime from the IOHIDSystem registry entry.
type ioregProvider struct{}

func newIdleProvider() IdleProvider {
	if _, err := exec.LookPath("ioreg"); err != nil {
		return unsupportedIdleProvider{}
	}
	return ioregProvider{}
}

func (ioregProvider) SinceLastInput(ctx context.Context) (time.Duration, error) {
	output, err := exec.CommandContext(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		return 0, fmt.Errorf("run ioreg: %w", err)
	}
	return parseHIDIdleTime(string(output))
}

// parseHIDIdleTime finds `"HIDIdleTime" = <nanoseconds>` in ioreg output.
func parseHIDIdleTime(output string) (time.Duration, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		_, value, found := strings.Cut(line, `"HIDIdleTime" =`)
		if !found {
			continue
		}
		nanos, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime %q: %w", strings.TrimSpace(value), err)
		}
		return time.Duration(max(nanos, 0)), nil
	}
	return 0, fmt.Errorf("parse ioreg output: HIDIdleTime not found")
}

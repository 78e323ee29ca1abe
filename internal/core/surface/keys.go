package surface

import (
	"fmt"
	"strings"
)

// KeyEvent is a toolkit-neutral key press.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
}

// Shortcut is a key chord that toggles the timer.
type Shortcut struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
}

// DefaultShortcut is Ctrl+Shift+T.
var DefaultShortcut = Shortcut{Key: "T", Ctrl: true, Shift: true}

// Matches reports whether event is this chord. Letter keys compare
// case-insensitively since Shift changes the reported rune.
func (shortcut Shortcut) Matches(event KeyEvent) bool {
	if shortcut.Key == "" {
		return false
	}
	return strings.EqualFold(shortcut.Key, event.Key) &&
		shortcut.Ctrl == event.Ctrl &&
		shortcut.Shift == event.Shift &&
		shortcut.Alt == event.Alt
}

func (shortcut Shortcut) String() string {
	var parts []string
	if shortcut.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if shortcut.Alt {
		parts = append(parts, "Alt")
	}
	if shortcut.Shift {
		parts = append(parts, "Shift")
	}
	parts = append(parts, strings.ToUpper(shortcut.Key))
	return strings.Join(parts, "+")
}

// ParseShortcut reads chords like "Ctrl+Shift+T".
func ParseShortcut(text string) (Shortcut, error) {
	var shortcut Shortcut
	for _, part := range strings.Split(text, "+") {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "ctrl", "control":
			shortcut.Ctrl = true
		case "shift":
			shortcut.Shift = true
		case "alt", "option":
			shortcut.Alt = true
		case "":
			return Shortcut{}, fmt.Errorf("parse shortcut %q: empty key", text)
		default:
			if shortcut.Key != "" {
				return Shortcut{}, fmt.Errorf("parse shortcut %q: more than one key", text)
			}
			shortcut.Key = strings.ToUpper(part)
		}
	}
	if shortcut.Key == "" {
		return Shortcut{}, fmt.Errorf("parse shortcut %q: missing key", text)
	}
	return shortcut, nil
}

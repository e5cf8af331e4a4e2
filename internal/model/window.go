package model

import (
	"strings"
	"time"
)

// Window is a recency lookback for feed entries.
type Window string

const (
	Window24h   Window = "24h"
	Window48h   Window = "48h"
	WindowWeek  Window = "1w"
	WindowMonth Window = "1m"
)

// DefaultWindow is used when no window, or an unknown one, is requested.
const DefaultWindow = WindowWeek

// ParseWindow maps user input onto a window. The short forms "d", "w" and
// "m" are accepted. Unknown input returns DefaultWindow and false.
func ParseWindow(s string) (Window, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "24h", "d", "1d":
		return Window24h, true
	case "48h", "2d":
		return Window48h, true
	case "1w", "w", "7d":
		return WindowWeek, true
	case "1m", "m", "30d":
		return WindowMonth, true
	}
	return DefaultWindow, false
}

// Duration returns the lookback length. A month is 30 days.
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window48h:
		return 48 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Cutoff returns the oldest publish time still inside the window.
func (w Window) Cutoff(now time.Time) time.Time {
	return now.Add(-w.Duration())
}

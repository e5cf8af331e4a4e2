package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in   string
		want Window
		ok   bool
	}{
		{"24h", Window24h, true},
		{"d", Window24h, true},
		{"48h", Window48h, true},
		{"1w", WindowWeek, true},
		{"W", WindowWeek, true},
		{" 1m ", WindowMonth, true},
		{"m", WindowMonth, true},
		{"", DefaultWindow, false},
		{"fortnight", DefaultWindow, false},
	}
	for _, tt := range tests {
		got, ok := ParseWindow(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
	}
}

func TestWindow_Duration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, Window24h.Duration())
	assert.Equal(t, 48*time.Hour, Window48h.Duration())
	assert.Equal(t, 7*24*time.Hour, WindowWeek.Duration())
	assert.Equal(t, 30*24*time.Hour, WindowMonth.Duration())
	assert.Equal(t, 7*24*time.Hour, Window("").Duration())

	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), Window24h.Cutoff(now))
}

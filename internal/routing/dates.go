package routing

import (
	"time"

	"github.com/visita-intel/newsintel/internal/feeds"
)

// Publish dates outside this range are treated as parse errors.
const (
	minYear = 2020
	maxYear = 2030
)

// plausible returns t when its year is in range, else nil.
func plausible(t *time.Time) *time.Time {
	if t == nil || t.Year() < minYear || t.Year() > maxYear {
		return nil
	}
	return t
}

// parsePlausible parses a free-form date and applies the year guard.
func parsePlausible(raw string) *time.Time {
	return plausible(feeds.ParseDate(raw))
}

// firstTime returns the first non-nil candidate, else fallback.
func firstTime(fallback time.Time, candidates ...*time.Time) time.Time {
	for _, c := range candidates {
		if c != nil {
			return c.UTC()
		}
	}
	return fallback
}

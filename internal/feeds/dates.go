package feeds

import (
	"strings"
	"time"
)

// dateLayouts covers the publish-date formats seen across the catalog:
// RFC 822/1123 variants from RSS, RFC 3339 from Atom, and a few bare forms.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 Z",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses a feed timestamp. Values without a zone are taken as UTC.
// It returns nil when no layout matches.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	// "GMT+0000"-style suffixes and doubled spaces trip the layouts.
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Replace(s, "GMT+", "+", 1)
	s = strings.Replace(s, "UTC+", "+", 1)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// isRecent reports whether a publish time falls inside the lookback that
// ends at now. Unknown times are treated as recent.
func isRecent(published *time.Time, cutoff time.Time) bool {
	if published == nil {
		return true
	}
	return !published.Before(cutoff)
}

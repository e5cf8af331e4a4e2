package routing

import (
	"strconv"
	"strings"
)

var sentimentScale = map[string]float64{
	"very bullish":      1,
	"bullish":           1,
	"positive":          1,
	"very positive":     1,
	"high hype":         1,
	"optimistic":        0.5,
	"somewhat bullish":  0.5,
	"moderate hype":     0.5,
	"slightly positive": 0.5,
	"neutral":           0,
	"mixed":             0,
	"informational":     0,
	"low hype":          -0.5,
	"cautious":          -0.5,
	"somewhat bearish":  -0.5,
	"slightly negative": -0.5,
	"bearish":           -1,
	"very bearish":      -1,
	"negative":          -1,
	"very negative":     -1,
}

// NumericSentiment maps a sentiment label onto -1..1 for tables with a
// numeric sentiment column. Numeric labels are clamped. Sentinels and
// unknown labels are neutral.
func NumericSentiment(label string) float64 {
	l := strings.ToLower(strings.TrimSpace(label))
	if v, ok := sentimentScale[l]; ok {
		return v
	}
	if f, err := strconv.ParseFloat(l, 64); err == nil {
		return max(-1, min(1, f))
	}
	switch {
	case strings.Contains(l, "bull"), strings.Contains(l, "positive"):
		return 1
	case strings.Contains(l, "bear"), strings.Contains(l, "negative"):
		return -1
	}
	return 0
}

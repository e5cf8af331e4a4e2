package analysis

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
)

// refusalMarkers identify a model declining to analyze the content.
var refusalMarkers = []string{
	"content is encrypted",
	"text is encrypted",
	"appears to be encrypted",
	"unable to analyze",
	"unable to analyse",
	"cannot analyze",
	"cannot analyse",
	"cannot be analyzed",
	"can't analyze",
	"not possible to analyze",
	"i'm sorry, but i can",
	"i cannot help with",
}

// ParseResponse extracts an AnalysisResult from raw model output. Refusals
// become the Skipped sentinel; anything unparseable becomes the Error sentinel.
func ParseResponse(raw string) model.AnalysisResult {
	cleaned := cleanJSON(raw)

	var r model.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		if isRefusal(raw) {
			return model.SkippedResult("Model declined to analyze the content.")
		}
		zap.L().Warn("analysis: unparseable model response",
			zap.Int("chars", len(raw)),
			zap.Error(err),
		)
		return model.ErrorResult("Analysis failed: model response was not valid JSON.")
	}

	if r.Sentiment == "" && r.Category == "" {
		if isRefusal(r.Summary) || isRefusal(raw) {
			return model.SkippedResult("Model declined to analyze the content.")
		}
		return model.ErrorResult("Analysis failed: model response had no sentiment or category.")
	}
	if len(r.KeyEntities) == 0 && isRefusal(r.Summary) {
		return model.SkippedResult("Model declined to analyze the content.")
	}

	if r.Sentiment == "" {
		r.Sentiment = "Unknown"
	}
	if r.Category == "" {
		r.Category = "Unknown"
	}
	if r.KeyEntities == nil {
		r.KeyEntities = []string{}
	}
	r.DetectedNiche = normalizeNiche(r.DetectedNiche)
	return r
}

// normalizeNiche keeps a re-detected niche only when it belongs to the
// vocabulary. Misspellings are dropped, not corrected.
func normalizeNiche(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	n, ok := model.ParseNiche(s)
	if !ok {
		zap.L().Debug("analysis: discarding unknown detected niche", zap.String("detected", s))
		return ""
	}
	return n.String()
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range refusalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences, trailing prose, or a leading explanation.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Keep only the body of the first fenced block.
	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
			body = body[nl+1:] // language tag line
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		text = strings.TrimSpace(body)
	}

	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return text
	}
	if obj := firstObject(text); obj != "" {
		return obj
	}
	return text
}

// firstObject returns the first balanced {...} span in text, honouring
// string literals, or "" when there is none.
func firstObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

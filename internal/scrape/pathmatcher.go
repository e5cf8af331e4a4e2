package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns cover pages with no readable article body: media
// players and binary documents.
var defaultExcludePatterns = []string{
	"/video/*",
	"/videos/*",
	"/live/*",
	"/podcast/*",
	"/podcasts/*",
	"/gallery/*",
	"*.pdf",
	"*.mp3",
	"*.mp4",
}

// PathMatcher filters URLs based on glob-style path patterns.
// Uses path.Match from stdlib for proper glob matching, plus a segmented
// match so "/video/*" matches multi-level paths like "/video/2025/clip".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns (e.g. "/video/*", "*.pdf").
// Falls back to default patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	return &PathMatcher{patterns: patterns}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL matches any exclude pattern.
// Unparseable URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return m.isPathExcluded(u.Path)
}

func (m *PathMatcher) isPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		if matchSegmented(strings.ToLower(pattern), urlPath) {
			return true
		}
	}
	return false
}

// matchSegmented performs glob matching where "/video/*" matches both
// "/video/clip" and "/video/deep/nested/clip", and a bare extension pattern
// like "*.pdf" matches at any depth.
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(urlPath, pattern[1:])
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	return false
}

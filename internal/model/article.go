package model

import "time"

// ArticleCandidate is one feed entry selected for enrichment.
// URL is the identity key across every destination table.
type ArticleCandidate struct {
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Source       string     `json:"source"`
	Niche        Niche      `json:"niche"`
	Published    *time.Time `json:"published,omitempty"`     // nil when missing or unparseable
	PublishedRaw string     `json:"published_raw,omitempty"` // as it appeared in the feed
	Summary      string     `json:"summary,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
}

// PublishedString returns the publish time in RFC 3339 (UTC), or "" when unknown.
func (a ArticleCandidate) PublishedString() string {
	if a.Published == nil {
		return ""
	}
	return a.Published.UTC().Format(time.RFC3339)
}

// AcquisitionMethod names the tier that produced an article's context.
type AcquisitionMethod string

const (
	MethodScraped        AcquisitionMethod = "scraped"
	MethodReader         AcquisitionMethod = "reader"
	MethodSearchFallback AcquisitionMethod = "search_fallback"
	MethodNone           AcquisitionMethod = "none"
)

// AcquiredContext pairs the text and image gathered for one article.
// Text is empty when every acquisition tier failed.
type AcquiredContext struct {
	Text     string            `json:"text"`
	ImageURL string            `json:"image_url,omitempty"`
	Method   AcquisitionMethod `json:"method"`
	// SearchQueries counts billable search requests made while acquiring,
	// including failed searches and image backfill.
	SearchQueries int `json:"search_queries,omitempty"`
}

// HasText reports whether any tier produced usable text.
func (c AcquiredContext) HasText() bool {
	return c.Text != ""
}

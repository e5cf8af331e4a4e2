// Package scrape acquires article text and a representative image through an
// ordered list of acquisition tiers.
package scrape

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/internal/model"
)

// ErrThinContent is returned when a page yields less text than the quality gate allows.
var ErrThinContent = eris.New("scrape: content below minimum length")

// Target identifies the article whose context is being acquired.
type Target struct {
	URL   string
	Title string
}

// Attempt is what one tier recovered. Text is empty when only an image was found.
type Attempt struct {
	Text     string
	ImageURL string
	Method   model.AcquisitionMethod
	// Queries is the number of billable search requests the attempt sent.
	Queries int
}

// Strategy is one text acquisition tier.
type Strategy interface {
	Name() string
	Supports(url string) bool
	// Attempt may return a partial Attempt (image only) alongside an error.
	Attempt(ctx context.Context, t Target) (*Attempt, error)
}

// ImageSearcher finds an illustrative image URL for a query. queries is
// the number of billable requests sent, even when err is non-nil.
type ImageSearcher interface {
	SearchImage(ctx context.Context, query string) (url string, queries int, err error)
}

// CleanQuery strips quote characters that confuse search engines.
func CleanQuery(title string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(title))
}

// collapseWhitespace folds every whitespace run into a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes caps s at n characters.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

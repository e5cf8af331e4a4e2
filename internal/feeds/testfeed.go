package feeds

import (
	"strings"
	"time"

	"github.com/visita-intel/newsintel/internal/model"
)

// TestSource is the source name carried by synthetic candidates.
const TestSource = "TestFeed"

// TestCandidates returns two synthetic candidates for niche so a dry run can
// exercise the whole pipeline without touching the network.
func TestCandidates(niche model.Niche, now time.Time) []model.ArticleCandidate {
	tag := niche
	if tag == model.NicheAll || tag == "" {
		tag = model.NicheGeneral
	}
	label := strings.ToUpper(string(niche))

	first := now.Add(-1 * time.Hour).UTC()
	second := now.Add(-3 * time.Hour).UTC()
	return []model.ArticleCandidate{
		{
			Title:        "[" + label + "] Major Industry Announcement",
			URL:          "https://example.com/breaking-news",
			Source:       TestSource,
			Niche:        tag,
			Published:    &first,
			PublishedRaw: first.Format(time.RFC1123),
			Summary:      "A major event has occurred in the industry.",
		},
		{
			Title:        "[" + label + "] New Innovation Revealed",
			URL:          "https://example.com/innovation",
			Source:       TestSource,
			Niche:        tag,
			Published:    &second,
			PublishedRaw: second.Format(time.RFC1123),
		},
	}
}

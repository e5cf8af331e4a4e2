package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/pkg/brave"
)

const (
	defaultSearchResults  = 5
	defaultSearchMaxChars = 6000
)

// ErrNoResults is returned when the search produced nothing to aggregate.
var ErrNoResults = eris.New("search: no results")

// Search builds context from web search snippets about the article title.
// It is the paid fallback used when no tier could read the page.
type Search struct {
	client   brave.Client
	count    int
	maxChars int
	warnOnce sync.Once
}

// NewSearch creates the search tier. A nil client yields empty text.
func NewSearch(client brave.Client, maxChars int) *Search {
	if maxChars <= 0 {
		maxChars = defaultSearchMaxChars
	}
	return &Search{client: client, count: defaultSearchResults, maxChars: maxChars}
}

func (s *Search) Name() string { return "search" }

func (s *Search) Supports(_ string) bool { return true }

// Attempt runs one web search on the cleaned title.
func (s *Search) Attempt(ctx context.Context, t Target) (*Attempt, error) {
	if s.client == nil {
		s.warnMissingCredential()
		return nil, brave.ErrNoKeys
	}

	resp, err := s.client.WebSearch(ctx, CleanQuery(t.Title), brave.WebSearchOptions{
		Count:         s.count,
		ExtraSnippets: true,
		SearchLang:    "en",
	})
	if err != nil {
		if errors.Is(err, brave.ErrNoKeys) {
			s.warnMissingCredential()
			return nil, eris.Wrap(err, "search: web search")
		}
		return &Attempt{Queries: 1}, eris.Wrap(err, "search: web search")
	}
	if len(resp.Web.Results) == 0 {
		return &Attempt{Queries: 1}, ErrNoResults
	}

	return &Attempt{
		Text:    truncateRunes(formatResults(resp.Web.Results), s.maxChars),
		Method:  model.MethodSearchFallback,
		Queries: 1,
	}, nil
}

func (s *Search) warnMissingCredential() {
	s.warnOnce.Do(func() {
		zap.L().Warn("scrape: search credential missing, search fallback disabled")
	})
}

// formatResults renders results as the block handed to the analysis engine.
func formatResults(results []brave.WebResult) string {
	var b strings.Builder
	b.WriteString("Search Results:\n")
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "No Title"
		}
		fmt.Fprintf(&b, "- Title: %s\n  Snippet: %s %s\n\n", title, r.Description, strings.Join(r.ExtraSnippets, " "))
	}
	return b.String()
}

// Package routing persists analysed articles into the multi-schema store.
// A pure lookup plus ordered overrides picks the destination table; a
// per-table Descriptor adapts the payload to that table's columns.
package routing

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/store"
)

const defaultSource = "SA News Scraper"

// Feed item statuses in ai_intelligence.feed_items.
const (
	FeedItemPending   = "pending"
	FeedItemProcessed = "processed"
	FeedItemFailed    = "failed"
	FeedItemSkipped   = "skipped"
)

// feedItemRoutedTo records the "schema.table" an article was last written to.
const feedItemRoutedTo = "routed_to"

// Router writes enrichment results to their destinations.
type Router struct {
	dest store.Destination
	now  func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClock overrides the time source used for created/seen timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a Router writing to dest.
func NewRouter(dest store.Destination, opts ...Option) *Router {
	r := &Router{dest: dest, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) nowUTC() time.Time {
	return r.now().UTC()
}

// Exists reports whether url is already stored for the niche. The niche's
// own table is checked first; an article that an override or a re-detected
// niche sent elsewhere is found through its feed item's routed_to marker.
// Lookup failures count as absent so the article is processed.
func (r *Router) Exists(ctx context.Context, url string, niche model.Niche) bool {
	if url == "" {
		return false
	}
	if n, ok := model.ParseNiche(string(niche)); ok {
		niche = n
	} else {
		niche = model.NicheGeneral
	}
	base := baseTarget(niche)
	if r.storedIn(ctx, base, url) {
		return true
	}
	routed, ok := r.routedTo(ctx, url)
	if !ok || routed == base {
		return false
	}
	return r.storedIn(ctx, routed, url)
}

func (r *Router) storedIn(ctx context.Context, t Target, url string) bool {
	col := DescriptorFor(t).ConflictColumn
	rows, err := r.dest.SelectEq(ctx, t.Schema, t.Table, col, col, url)
	if err != nil {
		zap.L().Debug("routing: exists check failed",
			zap.String("table", t.String()),
			zap.String("url", url),
			zap.Error(err),
		)
		return false
	}
	return len(rows) > 0
}

// routedTo reads the destination recorded on url's feed item.
func (r *Router) routedTo(ctx context.Context, url string) (Target, bool) {
	rows, err := r.dest.SelectEq(ctx, feedItemsTarget.Schema, feedItemsTarget.Table, feedItemRoutedTo, "url", url)
	if err != nil || len(rows) == 0 {
		return Target{}, false
	}
	v, _ := rows[0][feedItemRoutedTo].(string)
	schema, table, ok := strings.Cut(v, ".")
	if !ok || schema == "" || table == "" {
		return Target{}, false
	}
	return Target{Schema: schema, Table: table}, true
}

// TraceFeedItems records every sampled article as pending before enrichment.
func (r *Router) TraceFeedItems(ctx context.Context, articles []model.ArticleCandidate) error {
	if len(articles) == 0 {
		return nil
	}
	now := r.nowUTC()
	rows := make([]store.Row, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, store.Row{
			"url":          a.URL,
			"title":        a.Title,
			"source":       a.Source,
			"niche":        string(a.Niche),
			"published_at": plausible(a.Published),
			"image_url":    a.ImageURL,
			"status":       FeedItemPending,
			"created_at":   now,
		})
	}
	if err := r.dest.UpsertMany(ctx, feedItemsTarget.Schema, feedItemsTarget.Table, rows, "url"); err != nil {
		return eris.Wrapf(err, "routing: trace %d feed items", len(rows))
	}
	return nil
}

// FeedItemStatus maps an analysis outcome to a feed item status.
func FeedItemStatus(a model.AnalysisResult) string {
	switch {
	case a.IsError():
		return FeedItemFailed
	case a.IsSkipped():
		return FeedItemSkipped
	default:
		return FeedItemProcessed
	}
}

// UpdateFeedItemStatus closes out the article's feed item after enrichment.
func (r *Router) UpdateFeedItemStatus(ctx context.Context, a model.AnalysisResult, article model.ArticleCandidate) error {
	status := FeedItemStatus(a)
	patch := store.Row{
		"status":       status,
		"processed_at": r.nowUTC(),
		"error":        nil,
	}
	if status != FeedItemProcessed {
		patch["error"] = a.Summary
	}
	if err := r.dest.UpdateEq(ctx, feedItemsTarget.Schema, feedItemsTarget.Table, patch, "url", article.URL); err != nil {
		return eris.Wrapf(err, "routing: update feed item %s", article.URL)
	}
	return nil
}

// Route persists one article: the people and organization side records,
// then its incidents, then the article itself. Side writes are isolated;
// their failures are logged. The returned error is the article write's.
func (r *Router) Route(ctx context.Context, a model.AnalysisResult, article model.ArticleCandidate) (Target, error) {
	log := zap.L().With(zap.String("url", article.URL))

	r.ingestPeople(ctx, log, a, article)
	r.ingestOrganizations(ctx, log, a)
	for _, inc := range a.Incidents {
		if err := r.ingestIncident(ctx, inc, a, article); err != nil {
			log.Warn("routing: incident write failed", zap.Error(err))
		}
	}

	t := Resolve(a, article)
	d := DescriptorFor(t)
	row := d.Apply(r.basePayload(a, article), a, article.ImageURL)

	if err := r.dest.Upsert(ctx, t.Schema, t.Table, row, d.ConflictColumn); err != nil {
		return t, eris.Wrapf(err, "routing: upsert %s", t)
	}
	log.Info("routing: upserted", zap.String("table", t.String()))

	marker := store.Row{feedItemRoutedTo: t.String()}
	if err := r.dest.UpdateEq(ctx, feedItemsTarget.Schema, feedItemsTarget.Table, marker, "url", article.URL); err != nil {
		log.Warn("routing: feed item routed_to update failed", zap.Error(err))
	}
	return t, nil
}

func (r *Router) basePayload(a model.AnalysisResult, article model.ArticleCandidate) store.Row {
	now := r.nowUTC()
	source := article.Source
	if source == "" {
		source = defaultSource
	}
	return store.Row{
		fieldTitle:       article.Title,
		fieldURL:         article.URL,
		fieldPublishedAt: firstTime(now, plausible(article.Published)),
		fieldCategory:    a.Category,
		fieldSummary:     a.Summary,
		fieldSentiment:   a.Sentiment,
		fieldSource:      source,
		fieldCreatedAt:   now,
	}
}

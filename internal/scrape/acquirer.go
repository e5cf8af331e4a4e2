package scrape

import (
	"context"

	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
)

// Acquirer tries text strategies in priority order and resolves the article
// image independently of the text outcome.
type Acquirer struct {
	strategies []Strategy
	images     ImageSearcher
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithImageBackfill enables the image search tier for articles that end up
// with neither a feed image nor a scraped one.
func WithImageBackfill(s ImageSearcher) AcquirerOption {
	return func(a *Acquirer) {
		a.images = s
	}
}

// NewAcquirer creates an Acquirer. Strategies are tried in order; the first
// one producing text wins.
func NewAcquirer(strategies []Strategy, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{strategies: strategies}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire gathers context for one article. It never fails: a missing text
// channel is reported as MethodNone with empty Text.
//
// Image priority is feed image, then the first image any tier scraped, then
// the backfill search.
func (a *Acquirer) Acquire(ctx context.Context, url, title, feedImage string) model.AcquiredContext {
	t := Target{URL: url, Title: title}
	out := model.AcquiredContext{Method: model.MethodNone}
	log := zap.L().With(zap.String("url", url))

	var scrapedImage string
	for _, s := range a.strategies {
		if !s.Supports(url) {
			continue
		}
		att, err := s.Attempt(ctx, t)
		if att != nil {
			out.SearchQueries += att.Queries
			if scrapedImage == "" {
				scrapedImage = att.ImageURL
			}
		}
		if err != nil {
			log.Info("scrape: tier failed, trying next",
				zap.String("tier", s.Name()),
				zap.Error(err),
			)
			continue
		}
		if att == nil || att.Text == "" {
			continue
		}
		out.Text = att.Text
		out.Method = att.Method
		log.Debug("scrape: tier succeeded",
			zap.String("tier", s.Name()),
			zap.Int("chars", len(att.Text)),
		)
		break
	}

	switch {
	case feedImage != "":
		out.ImageURL = feedImage
	case scrapedImage != "":
		out.ImageURL = scrapedImage
	case a.images != nil:
		img, queries, err := a.images.SearchImage(ctx, CleanQuery(title))
		out.SearchQueries += queries
		if err != nil {
			log.Info("scrape: image backfill failed", zap.Error(err))
			break
		}
		out.ImageURL = img
	}

	if !out.HasText() {
		log.Warn("scrape: no tier produced text")
	}
	return out
}

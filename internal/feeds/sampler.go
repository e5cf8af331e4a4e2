package feeds

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/visita-intel/newsintel/internal/fetcher"
	"github.com/visita-intel/newsintel/internal/model"
)

const (
	defaultWorkers      = 10
	defaultFetchTimeout = 20 * time.Second
	unknownFeedName     = "Unknown Feed"
)

// Request selects what to sample.
type Request struct {
	Niche         model.Niche
	Source        string
	CustomFeedURL string
	Window        model.Window
	// MaxArticles caps the result; zero or less means no cap.
	MaxArticles int
	// TestMode returns synthetic candidates instead of fetching.
	TestMode bool
}

// Sampler fetches, filters, deduplicates and balances feed entries.
type Sampler struct {
	catalog *Catalog
	fetcher fetcher.Fetcher
	workers int
	timeout time.Duration
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithWorkers sets the number of concurrent feed fetches.
func WithWorkers(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFetchTimeout sets the wall-clock budget for one feed.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// WithRand overrides the shuffle source (tests).
func WithRand(r *rand.Rand) Option {
	return func(s *Sampler) { s.rng = r }
}

// NewSampler creates a Sampler over catalog using f for downloads.
func NewSampler(catalog *Catalog, f fetcher.Fetcher, opts ...Option) *Sampler {
	s := &Sampler{
		catalog: catalog,
		fetcher: f,
		workers: defaultWorkers,
		timeout: defaultFetchTimeout,
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sample returns the candidates for req. It never fails: feeds that cannot be
// fetched or parsed are logged and contribute nothing.
func (s *Sampler) Sample(ctx context.Context, req Request) []model.ArticleCandidate {
	log := zap.L().With(
		zap.String("niche", string(req.Niche)),
		zap.String("source", req.Source),
	)

	if req.TestMode {
		log.Info("feeds: test mode, using synthetic candidates")
		return capped(TestCandidates(req.Niche, s.now()), req.MaxArticles)
	}

	refs := s.catalog.Resolve(req.Niche, req.Source, req.CustomFeedURL)
	if len(refs) == 0 {
		log.Warn("feeds: no feeds resolved")
		return nil
	}
	log.Info("feeds: fetching", zap.Int("feeds", len(refs)), zap.Int("workers", s.workers))

	window := req.Window
	if window == "" {
		window = model.DefaultWindow
	}
	cutoff := window.Cutoff(s.now())

	perFeed := make([][]model.ArticleCandidate, len(refs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, ref := range refs {
		g.Go(func() error {
			perFeed[i] = s.fetchOne(ctx, ref, cutoff)
			return nil
		})
	}
	_ = g.Wait()

	var all []model.ArticleCandidate
	for _, items := range perFeed {
		all = append(all, items...)
	}
	unique := dedupByURL(all)

	var out []model.ArticleCandidate
	if req.Niche == model.NicheAll {
		out = s.balance(unique, req.MaxArticles)
	} else {
		s.shuffle(unique)
		out = capped(unique, req.MaxArticles)
	}

	log.Info("feeds: sampled",
		zap.Int("fetched", len(all)),
		zap.Int("unique", len(unique)),
		zap.Int("selected", len(out)),
	)
	return out
}

func (s *Sampler) fetchOne(ctx context.Context, ref FeedRef, cutoff time.Time) []model.ArticleCandidate {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := s.fetcher.Download(ctx, ref.URL)
	if err != nil {
		zap.L().Warn("feeds: fetch failed",
			zap.String("feed", ref.Key),
			zap.String("url", ref.URL),
			zap.Error(err),
		)
		return nil
	}
	defer body.Close() //nolint:errcheck

	feed, err := Parse(body)
	if err != nil {
		zap.L().Warn("feeds: parse failed",
			zap.String("feed", ref.Key),
			zap.String("url", ref.URL),
			zap.Error(err),
		)
		return nil
	}

	source := feed.Title
	if source == "" {
		source = unknownFeedName
	}

	out := make([]model.ArticleCandidate, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		published := ParseDate(e.Published)
		if !isRecent(published, cutoff) {
			continue
		}
		out = append(out, model.ArticleCandidate{
			Title:        e.Title,
			URL:          e.Link,
			Source:       source,
			Niche:        ref.Niche,
			Published:    published,
			PublishedRaw: e.Published,
			Summary:      e.Summary,
			ImageURL:     e.ImageURL,
		})
	}
	zap.L().Debug("feeds: fetched",
		zap.String("feed", ref.Key),
		zap.Int("entries", len(feed.Entries)),
		zap.Int("recent", len(out)),
	)
	return out
}

// balance groups candidates by niche, shuffles each group, then takes one
// per niche per round until maxItems is reached or every group is empty.
func (s *Sampler) balance(items []model.ArticleCandidate, maxItems int) []model.ArticleCandidate {
	var order []model.Niche
	groups := make(map[model.Niche][]model.ArticleCandidate)
	for _, it := range items {
		if _, ok := groups[it.Niche]; !ok {
			order = append(order, it.Niche)
		}
		groups[it.Niche] = append(groups[it.Niche], it)
	}
	for _, n := range order {
		s.shuffle(groups[n])
	}

	limit := len(items)
	if maxItems > 0 && maxItems < limit {
		limit = maxItems
	}
	out := make([]model.ArticleCandidate, 0, limit)
	for round := 0; len(out) < limit; round++ {
		added := false
		for _, n := range order {
			if round >= len(groups[n]) {
				continue
			}
			out = append(out, groups[n][round])
			added = true
			if len(out) == limit {
				break
			}
		}
		if !added {
			break
		}
	}
	return out
}

func (s *Sampler) shuffle(items []model.ArticleCandidate) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func dedupByURL(items []model.ArticleCandidate) []model.ArticleCandidate {
	seen := make(map[string]bool, len(items))
	out := make([]model.ArticleCandidate, 0, len(items))
	for _, it := range items {
		if seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		out = append(out, it)
	}
	return out
}

func capped(items []model.ArticleCandidate, maxItems int) []model.ArticleCandidate {
	if maxItems > 0 && len(items) > maxItems {
		return items[:maxItems]
	}
	return items
}

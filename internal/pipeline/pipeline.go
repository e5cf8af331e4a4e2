// Package pipeline drives one enrichment run: sample feeds, then for each
// article check for duplicates, acquire context, analyze, meter, emit the
// dataset record, route and close out the feed item.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/analysis"
	"github.com/visita-intel/newsintel/internal/cost"
	"github.com/visita-intel/newsintel/internal/feeds"
	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/monitoring"
	"github.com/visita-intel/newsintel/internal/resilience"
	"github.com/visita-intel/newsintel/internal/routing"
)

const (
	reasonDuplicate = "Duplicate: already routed."
	reasonNoContext = "Context acquisition failed: no usable text."
)

// Sampler selects the run's article candidates.
type Sampler interface {
	Sample(ctx context.Context, req feeds.Request) []model.ArticleCandidate
}

// Acquirer gathers text and an image for one article.
type Acquirer interface {
	Acquire(ctx context.Context, url, title, feedImage string) model.AcquiredContext
}

// Analyzer turns acquired text into an analysis result.
type Analyzer interface {
	AnalyzeWithUsage(ctx context.Context, run *resilience.ModelBreaker, text string, niche model.Niche) (model.AnalysisResult, analysis.Usage)
}

// Router persists analysed articles and their feed item trace.
type Router interface {
	Exists(ctx context.Context, url string, niche model.Niche) bool
	TraceFeedItems(ctx context.Context, articles []model.ArticleCandidate) error
	Route(ctx context.Context, a model.AnalysisResult, article model.ArticleCandidate) (routing.Target, error)
	UpdateFeedItemStatus(ctx context.Context, a model.AnalysisResult, article model.ArticleCandidate) error
}

// Sink receives one dataset record per analysed article.
type Sink interface {
	Push(ctx context.Context, rec model.DatasetRecord) error
}

// Notifier sends article and end-of-run alerts.
type Notifier interface {
	NotifyHype(ctx context.Context, rec model.DatasetRecord) (bool, error)
	Evaluate(snap monitoring.RunSnapshot) []monitoring.Alert
	SendAlerts(ctx context.Context, alerts []monitoring.Alert) int
}

// Options are the per-run settings.
type Options struct {
	// RunID is generated when empty.
	RunID         string
	Niche         model.Niche
	Source        string
	CustomFeedURL string
	Window        model.Window
	MaxArticles   int
	ForceRefresh  bool
	DryRun        bool
}

// Outcome is the terminal state of one article.
type Outcome struct {
	URL    string             `json:"url"`
	State  model.ArticleState `json:"state"`
	Target string             `json:"target,omitempty"`
	Reason string             `json:"reason,omitempty"`
}

// Result summarises a run.
type Result struct {
	RunID          string        `json:"run_id"`
	Total          int           `json:"total"`
	Routed         int           `json:"routed"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	Alerts         int           `json:"alerts"`
	Outcomes       []Outcome     `json:"outcomes"`
	DisabledModels []string      `json:"disabled_models,omitempty"`
	Cost           cost.Summary  `json:"cost"`
	Duration       time.Duration `json:"duration"`
}

// Pipeline orchestrates a run. Articles are processed one at a time.
type Pipeline struct {
	sampler  Sampler
	acquirer Acquirer
	analyzer Analyzer
	router   Router
	sink     Sink
	meter    *cost.Meter
	notifier Notifier
	newID    func() string
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunID overrides run id generation.
func WithRunID(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// WithClock overrides the pipeline's clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline with all dependencies. Each run meters into a fork
// of meter; a nil meter gets default rates and a logging charger.
func New(
	sampler Sampler,
	acquirer Acquirer,
	analyzer Analyzer,
	router Router,
	sink Sink,
	meter *cost.Meter,
	notifier Notifier,
	opts ...Option,
) *Pipeline {
	if meter == nil {
		meter = cost.NewMeter(nil, nil)
	}
	p := &Pipeline{
		sampler:  sampler,
		acquirer: acquirer,
		analyzer: analyzer,
		router:   router,
		sink:     sink,
		meter:    meter,
		notifier: notifier,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one enrichment run. Article failures are recorded in the
// result; only cancellation of ctx is returned as an error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := p.now()
	result := &Result{RunID: opts.RunID}
	if result.RunID == "" {
		result.RunID = p.newID()
	}
	log := zap.L().With(zap.String("run_id", result.RunID))
	log.Info("pipeline: starting run",
		zap.String("niche", opts.Niche.String()),
		zap.String("source", opts.Source),
		zap.String("window", string(opts.Window)),
		zap.Int("max_articles", opts.MaxArticles),
		zap.Bool("dry_run", opts.DryRun),
	)

	articles := p.sampler.Sample(ctx, feeds.Request{
		Niche:         opts.Niche,
		Source:        opts.Source,
		CustomFeedURL: opts.CustomFeedURL,
		Window:        opts.Window,
		MaxArticles:   opts.MaxArticles,
		TestMode:      opts.DryRun,
	})
	result.Total = len(articles)
	log.Info("pipeline: sampled articles", zap.Int("count", len(articles)))

	if len(articles) > 0 {
		if err := p.router.TraceFeedItems(ctx, articles); err != nil {
			log.Warn("pipeline: feed item trace failed", zap.Error(err))
		}
	}

	breaker := resilience.NewModelBreaker()
	meter := p.meter.Fork()
	var runErr error
	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrapf(err, "pipeline: run cancelled after %d of %d articles", i, len(articles))
			break
		}
		out := p.processArticle(ctx, breaker, meter, opts, result.RunID, article)
		result.Outcomes = append(result.Outcomes, out)
		switch out.State {
		case model.StateRouted:
			result.Routed++
		case model.StateSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	result.DisabledModels = breaker.Snapshot()
	result.Cost = meter.Summary()
	result.Duration = p.now().Sub(start)

	if p.notifier != nil {
		alerts := p.notifier.Evaluate(monitoring.RunSnapshot{
			RunID:    result.RunID,
			Total:    result.Total,
			Routed:   result.Routed,
			Failed:   result.Failed,
			Skipped:  result.Skipped,
			CostUSD:  result.Cost.USD,
			Duration: result.Duration,
		})
		if len(alerts) > 0 {
			result.Alerts += p.notifier.SendAlerts(ctx, alerts)
		}
	}

	log.Info("pipeline: run complete",
		zap.Int("total", result.Total),
		zap.Int("routed", result.Routed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Float64("cost_usd", result.Cost.USD),
		zap.Strings("disabled_models", result.DisabledModels),
		zap.Duration("duration", result.Duration),
	)
	return result, runErr
}

// processArticle walks one article through the state machine. Nothing it
// encounters is returned as an error.
func (p *Pipeline) processArticle(ctx context.Context, breaker *resilience.ModelBreaker, meter *cost.Meter, opts Options, runID string, article model.ArticleCandidate) Outcome {
	log := zap.L().With(zap.String("run_id", runID), zap.String("url", article.URL))
	st := &tracker{state: model.StateNotChecked, log: log}
	out := Outcome{URL: article.URL}

	if !opts.ForceRefresh && !opts.DryRun && p.router.Exists(ctx, article.URL, article.Niche) {
		st.advance(model.StateSkipped)
		log.Info("pipeline: duplicate, skipping")
		p.closeFeedItem(ctx, log, model.SkippedResult(reasonDuplicate), article)
		out.State, out.Reason = st.state, reasonDuplicate
		return out
	}

	st.advance(model.StateAcquiring)
	acquired := p.acquirer.Acquire(ctx, article.URL, article.Title, article.ImageURL)
	meter.RecordSearches(acquired.SearchQueries)
	if !acquired.HasText() {
		st.advance(model.StateFailed)
		log.Warn("pipeline: no context acquired")
		p.closeFeedItem(ctx, log, model.ErrorResult(reasonNoContext), article)
		out.State, out.Reason = st.state, reasonNoContext
		return out
	}

	st.advance(model.StateAnalyzing)
	a, usage := p.analyzer.AnalyzeWithUsage(ctx, breaker, acquired.Text, article.Niche)
	recordUsage(ctx, log, meter, a, usage, opts.DryRun)

	if a.IsSentinel() {
		st.advance(model.StateFailed)
		log.Warn("pipeline: analysis produced no content",
			zap.String("sentinel", a.Sentiment),
			zap.String("reason", a.Summary),
		)
		p.closeFeedItem(ctx, log, a, article)
		out.State, out.Reason = st.state, a.Summary
		return out
	}

	// The engine's detected niche is applied by routing; the record keeps
	// the niche the article was sampled under.
	rec := model.NewDatasetRecord(runID, article.Niche, article, acquired, a)
	if p.sink != nil {
		if err := p.sink.Push(ctx, rec); err != nil {
			log.Warn("pipeline: dataset push failed", zap.Error(err))
		}
	}

	// The acquired image wins over the feed's when present.
	routed := article
	if acquired.ImageURL != "" {
		routed.ImageURL = acquired.ImageURL
	}
	target, err := p.router.Route(ctx, a, routed)
	if err != nil {
		st.advance(model.StateFailed)
		log.Error("pipeline: route failed", zap.Error(err))
		p.closeFeedItem(ctx, log, model.ErrorResult(err.Error()), article)
		out.State, out.Reason = st.state, err.Error()
		return out
	}
	st.advance(model.StateRouted)
	out.State, out.Target = st.state, target.String()
	p.closeFeedItem(ctx, log, a, article)

	if p.notifier != nil {
		if _, err := p.notifier.NotifyHype(ctx, rec); err != nil {
			log.Warn("pipeline: hype alert failed", zap.Error(err))
		}
	}
	return out
}

// recordUsage attributes tokens and charges one event per live analysis.
func recordUsage(ctx context.Context, log *zap.Logger, meter *cost.Meter, a model.AnalysisResult, usage analysis.Usage, dryRun bool) {
	if usage.Model != "" {
		usd := meter.RecordTokens(resilience.ModelKey(usage.Provider, usage.Model), usage.InputTokens, usage.OutputTokens)
		log.Debug("pipeline: model usage",
			zap.String("provider", usage.Provider),
			zap.String("model", usage.Model),
			zap.Int64("input_tokens", usage.InputTokens),
			zap.Int64("output_tokens", usage.OutputTokens),
			zap.Float64("usd", usd),
		)
	}
	if dryRun || a.IsSentinel() {
		return
	}
	if err := meter.Charge(ctx, cost.EventSummarize); err != nil {
		log.Warn("pipeline: charge failed", zap.Error(err))
	}
}

func (p *Pipeline) closeFeedItem(ctx context.Context, log *zap.Logger, a model.AnalysisResult, article model.ArticleCandidate) {
	if err := p.router.UpdateFeedItemStatus(ctx, a, article); err != nil {
		log.Warn("pipeline: feed item status update failed", zap.Error(err))
	}
}

// tracker enforces legal article state transitions.
type tracker struct {
	state model.ArticleState
	log   *zap.Logger
}

func (t *tracker) advance(to model.ArticleState) {
	if !model.CanTransition(t.state, to) {
		t.log.Error("pipeline: illegal state transition",
			zap.String("from", string(t.state)),
			zap.String("to", string(to)),
		)
	}
	t.state = to
}

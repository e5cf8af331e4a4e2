package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/analysis"
	"github.com/visita-intel/newsintel/internal/config"
	"github.com/visita-intel/newsintel/internal/cost"
	"github.com/visita-intel/newsintel/internal/dataset"
	"github.com/visita-intel/newsintel/internal/feeds"
	"github.com/visita-intel/newsintel/internal/fetcher"
	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/monitoring"
	"github.com/visita-intel/newsintel/internal/pipeline"
	"github.com/visita-intel/newsintel/internal/routing"
	"github.com/visita-intel/newsintel/internal/scrape"
	anthropicpkg "github.com/visita-intel/newsintel/pkg/anthropic"
	"github.com/visita-intel/newsintel/pkg/brave"
	"github.com/visita-intel/newsintel/pkg/chat"
	"github.com/visita-intel/newsintel/pkg/jina"
)

const (
	openRouterReferer = "https://github.com/visita-intel/newsintel"
	openRouterTitle   = "newsintel"
)

// pipelineEnv holds the initialized destination, dataset sink, and pipeline
// needed by the run and serve commands.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Sink     dataset.Sink
	closeFns []func()
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Sink != nil {
		if err := pe.Sink.Close(); err != nil {
			zap.L().Warn("dataset sink close failed", zap.Error(err))
		}
	}
	for i := len(pe.closeFns) - 1; i >= 0; i-- {
		pe.closeFns[i]()
	}
}

// initPipeline validates the run settings, opens the destination and the
// dataset sink, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dest, closeStore, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{closeFns: []func(){closeStore}}

	sink, err := dataset.Open(ctx, cfg.Dataset.Driver, cfg.Dataset.Path)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "open dataset sink")
	}
	env.Sink = sink

	catalog, err := loadCatalog()
	if err != nil {
		env.Close()
		return nil, err
	}

	sampler := feeds.NewSampler(catalog,
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout: time.Duration(cfg.Feeds.TimeoutSecs) * time.Second,
		}),
		feeds.WithWorkers(cfg.Feeds.Workers),
		feeds.WithFetchTimeout(time.Duration(cfg.Feeds.TimeoutSecs)*time.Second),
	)

	meter := cost.NewMeter(cost.NewCalculator(ratesFromConfig(cfg.Pricing)), nil)

	p := pipeline.New(
		sampler,
		buildAcquirer(),
		analysis.NewEngine(buildProviders(), analysis.Options{
			Chain:           modelChain(cfg.LLM.Chain),
			MaxContextChars: cfg.LLM.MaxContextChars,
			MaxTokens:       cfg.LLM.MaxTokens,
			DryRun:          cfg.Run.DryRun,
		}),
		routing.NewRouter(dest),
		sink,
		meter,
		monitoring.NewAlerter(cfg.Run.DiscordWebhookURL, cfg.Monitoring),
	)
	env.Pipeline = p
	return env, nil
}

// runOptions converts the validated run settings into pipeline options.
func runOptions(rc config.RunConfig) pipeline.Options {
	w, _ := model.ParseWindow(rc.TimeLimit)
	return pipeline.Options{
		Niche:         model.Niche(rc.Niche),
		Source:        rc.Source,
		CustomFeedURL: rc.CustomFeedURL,
		Window:        w,
		MaxArticles:   rc.MaxArticles,
		ForceRefresh:  rc.ForceRefresh,
		DryRun:        rc.DryRun,
	}
}

func loadCatalog() (*feeds.Catalog, error) {
	if cfg.Feeds.CatalogPath == "" {
		return feeds.DefaultCatalog(), nil
	}
	c, err := feeds.LoadCatalog(cfg.Feeds.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "load feed catalog")
	}
	zap.L().Info("feed catalog loaded", zap.String("path", cfg.Feeds.CatalogPath), zap.Int("feeds", c.Size()))
	return c, nil
}

// buildAcquirer assembles the tiers: direct scrape, then the Jina reader
// when a key is set, then search snippets when Brave is configured.
func buildAcquirer() *scrape.Acquirer {
	if cfg.Run.DryRun {
		return scrape.NewTestModeAcquirer()
	}

	strategies := []scrape.Strategy{
		scrape.NewDirect(scrape.DirectOptions{
			Timeout:  time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
			MinChars: cfg.Scrape.MinChars,
			MaxChars: cfg.Scrape.MaxChars,
			Exclude:  scrape.NewPathMatcher(cfg.Scrape.Exclude),
		}),
	}
	if cfg.Jina.Key != "" {
		strategies = append(strategies, scrape.NewReader(
			jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL)),
			cfg.Scrape.MinChars, cfg.Scrape.MaxChars,
		))
	}

	var opts []scrape.AcquirerOption
	if keys := cfg.Brave.Keys(); len(keys) > 0 {
		bc := brave.NewClient(keys, brave.WithBaseURL(cfg.Brave.BaseURL))
		strategies = append(strategies, scrape.NewSearch(bc, cfg.Scrape.SearchChars))
		if cfg.Run.ImageBackfill {
			opts = append(opts, scrape.WithImageBackfill(scrape.NewBraveImages(bc)))
		}
	}
	return scrape.NewAcquirer(strategies, opts...)
}

// buildProviders registers a provider for every chain entry with a key.
func buildProviders() []analysis.Provider {
	var providers []analysis.Provider
	if cfg.OpenRouter.Key != "" {
		providers = append(providers, analysis.NewChatProvider(analysis.ProviderOpenRouter,
			chat.NewClient(cfg.OpenRouter.Key,
				chat.WithBaseURL(cfg.OpenRouter.BaseURL),
				chat.WithHeader("HTTP-Referer", openRouterReferer),
				chat.WithHeader("X-Title", openRouterTitle),
			)))
	}
	if cfg.GitHub.Key != "" {
		providers = append(providers, analysis.NewChatProvider(analysis.ProviderGitHub,
			chat.NewClient(cfg.GitHub.Key, chat.WithBaseURL(cfg.GitHub.BaseURL))))
	}
	if cfg.Anthropic.Key != "" {
		providers = append(providers, analysis.NewAnthropicProvider(anthropicpkg.NewClient(cfg.Anthropic.Key)))
	}
	return providers
}

func modelChain(entries []config.ModelEntry) []analysis.ModelRef {
	chain := make([]analysis.ModelRef, 0, len(entries))
	for _, e := range entries {
		chain = append(chain, analysis.ModelRef{Provider: e.Provider, Model: e.Model})
	}
	return chain
}

// ratesFromConfig overlays configured pricing on the default rates.
func ratesFromConfig(p config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	for key, m := range p.Models {
		rates.Models[key] = cost.ModelRate{Input: m.Input, Output: m.Output}
	}
	if p.BravePerQuery > 0 {
		rates.Brave.PerQuery = p.BravePerQuery
	}
	if p.JinaPerMTok > 0 {
		rates.Jina.PerMTok = p.JinaPerMTok
	}
	return rates
}

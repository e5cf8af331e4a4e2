// Package analysis turns acquired article text into a structured
// AnalysisResult by walking an ordered chain of LLM models.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/resilience"
)

const (
	defaultMaxContextChars = 8000
	defaultMaxTokens       = 2048
)

// ErrNoModels is reported when every model in the chain is disabled or
// has no registered provider.
var ErrNoModels = eris.New("analysis: no usable model in chain")

// ModelRef names one (provider, model) pair in the chain.
type ModelRef struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// Key returns the identifier used by the run's ModelBreaker.
func (r ModelRef) Key() string { return resilience.ModelKey(r.Provider, r.Model) }

// Usage describes which model answered and what it cost in tokens. It is
// zero when no model produced content.
type Usage struct {
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Options configures an Engine.
type Options struct {
	Chain           []ModelRef
	MaxContextChars int
	MaxTokens       int
	DryRun          bool
}

// Engine runs analysis against the model chain.
type Engine struct {
	providers map[string]Provider
	chain     []ModelRef
	maxChars  int
	maxTokens int
	dryRun    bool
}

// NewEngine creates an Engine. Chain entries whose provider is not among
// providers are skipped at call time.
func NewEngine(providers []Provider, opts Options) *Engine {
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = defaultMaxContextChars
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			byName[p.Name()] = p
		}
	}
	return &Engine{
		providers: byName,
		chain:     opts.Chain,
		maxChars:  opts.MaxContextChars,
		maxTokens: opts.MaxTokens,
		dryRun:    opts.DryRun,
	}
}

// Analyze returns the analysis for text. It never fails: errors degrade to
// the Error sentinel and refusals to the Skipped sentinel.
func (e *Engine) Analyze(ctx context.Context, run *resilience.ModelBreaker, text string, niche model.Niche) model.AnalysisResult {
	result, _ := e.AnalyzeWithUsage(ctx, run, text, niche)
	return result
}

// AnalyzeWithUsage is Analyze plus the token usage of the answering model.
//
// Models disabled in run are skipped. A rate limit or a permanent model
// error disables the model for the rest of the run; any other error moves on
// to the next model without disabling it.
func (e *Engine) AnalyzeWithUsage(ctx context.Context, run *resilience.ModelBreaker, text string, niche model.Niche) (model.AnalysisResult, Usage) {
	if e.dryRun {
		return DryRunResult(niche), Usage{}
	}
	if strings.TrimSpace(text) == "" {
		return model.ErrorResult("Analysis failed: no context to analyze."), Usage{}
	}
	if run == nil {
		run = resilience.NewModelBreaker()
	}

	if utf8.RuneCountInString(text) > e.maxChars {
		text = string([]rune(text)[:e.maxChars])
	}
	req := Request{
		System:    BuildSystemPrompt(niche),
		User:      BuildUserPrompt(text),
		MaxTokens: e.maxTokens,
	}

	var lastErr error
	for _, ref := range e.chain {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		key := ref.Key()
		if run.Disabled(key) {
			continue
		}
		p, ok := e.providers[ref.Provider]
		if !ok {
			continue
		}

		log := zap.L().With(zap.String("model", key), zap.String("niche", niche.String()))
		req.Model = ref.Model
		comp, err := p.Complete(ctx, req)
		if err != nil {
			lastErr = err
			if resilience.IsRateLimited(err) || resilience.IsPermanentModelError(err) || resilience.IsCredentialRejected(err) {
				run.Disable(key, err.Error())
				log.Warn("analysis: model disabled for run", zap.Error(err))
			} else {
				log.Info("analysis: model failed, trying next", zap.Error(err))
			}
			continue
		}
		if strings.TrimSpace(comp.Text) == "" {
			lastErr = eris.Errorf("analysis: %s returned empty content", key)
			log.Info("analysis: empty completion, trying next")
			continue
		}

		usage := Usage{
			Provider:     ref.Provider,
			Model:        ref.Model,
			InputTokens:  comp.InputTokens,
			OutputTokens: comp.OutputTokens,
		}
		return ParseResponse(comp.Text), usage
	}

	if lastErr == nil {
		lastErr = ErrNoModels
	}
	zap.L().Error("analysis: model chain exhausted",
		zap.String("niche", niche.String()),
		zap.Strings("disabled", run.Snapshot()),
		zap.Error(lastErr),
	)
	return model.ErrorResult(fmt.Sprintf("Analysis failed: %v", lastErr)), Usage{}
}

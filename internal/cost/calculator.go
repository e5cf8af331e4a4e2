// Package cost prices LLM and search usage and meters billable events for a run.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	// Models is keyed by "provider/model".
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
	Brave  BraveRate            `yaml:"brave" mapstructure:"brave"`
	Jina   JinaRate             `yaml:"jina" mapstructure:"jina"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// BraveRate holds Brave Search pricing.
type BraveRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// JinaRate holds Jina Reader pricing.
type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Model computes the cost of one completion. Unpriced models cost 0.
func (c *Calculator) Model(key string, input, output int64) float64 {
	rate, ok := c.rates.Models[key]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Jina computes the cost for Jina Reader token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return (float64(tokens) / 1e6) * c.rates.Jina.PerMTok
}

// BraveQuery returns the flat cost per Brave query.
func (c *Calculator) BraveQuery() float64 {
	return c.rates.Brave.PerQuery
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"openrouter/google/gemini-2.0-flash-001":       {Input: 0.10, Output: 0.40},
			"openrouter/meta-llama/llama-3.3-70b-instruct": {Input: 0.13, Output: 0.40},
			"openrouter/openai/gpt-4o-mini":                {Input: 0.15, Output: 0.60},
			"github/gpt-4o-mini":                           {Input: 0, Output: 0},
			"anthropic/claude-haiku-4-5-20251001":          {Input: 0.80, Output: 4.00},
		},
		Brave: BraveRate{PerQuery: 0.005},
		Jina:  JinaRate{PerMTok: 0.02},
	}
}

package cost

import (
	"context"
	"maps"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// EventSummarize is charged once per successful live analysis.
const EventSummarize = "summarize_snippets_with_llm"

// Charger delivers a billable event to the billing platform.
type Charger interface {
	Charge(ctx context.Context, event string) error
}

// LogCharger records charge events in the log only.
type LogCharger struct{}

func (LogCharger) Charge(_ context.Context, event string) error {
	zap.L().Info("cost: charge event", zap.String("event", event))
	return nil
}

// Summary is a snapshot of a run's metered usage.
type Summary struct {
	Events        map[string]int `json:"events"`
	InputTokens   int64          `json:"input_tokens"`
	OutputTokens  int64          `json:"output_tokens"`
	SearchQueries int            `json:"search_queries"`
	USD           float64        `json:"usd"`
}

// Meter accumulates billable events and token spend for one run.
type Meter struct {
	calc    *Calculator
	charger Charger

	mu      sync.Mutex
	summary Summary
}

// NewMeter creates a Meter. A nil charger logs events only.
func NewMeter(calc *Calculator, charger Charger) *Meter {
	if charger == nil {
		charger = LogCharger{}
	}
	if calc == nil {
		calc = NewCalculator(DefaultRates())
	}
	return &Meter{
		calc:    calc,
		charger: charger,
		summary: Summary{Events: make(map[string]int)},
	}
}

// Fork returns an empty Meter sharing m's rates and charger.
func (m *Meter) Fork() *Meter {
	return NewMeter(m.calc, m.charger)
}

// Charge sends event to the charger and counts it once delivered.
func (m *Meter) Charge(ctx context.Context, event string) error {
	if err := m.charger.Charge(ctx, event); err != nil {
		return eris.Wrapf(err, "cost: charge %s", event)
	}
	m.mu.Lock()
	m.summary.Events[event]++
	m.mu.Unlock()
	return nil
}

// RecordTokens attributes a completion's tokens to model key and returns its cost.
func (m *Meter) RecordTokens(key string, input, output int64) float64 {
	usd := m.calc.Model(key, input, output)
	m.mu.Lock()
	m.summary.InputTokens += input
	m.summary.OutputTokens += output
	m.summary.USD += usd
	m.mu.Unlock()
	return usd
}

// RecordSearch attributes one search query.
func (m *Meter) RecordSearch() {
	m.RecordSearches(1)
}

// RecordSearches attributes n search queries, successful or not.
func (m *Meter) RecordSearches(n int) {
	if n <= 0 {
		return
	}
	usd := m.calc.BraveQuery() * float64(n)
	m.mu.Lock()
	m.summary.SearchQueries += n
	m.summary.USD += usd
	m.mu.Unlock()
}

// Summary returns a copy of the accumulated usage.
func (m *Meter) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.summary
	s.Events = maps.Clone(m.summary.Events)
	return s
}

package resilience

import (
	"sort"
	"sync"
)

// ModelBreaker remembers which (provider, model) pairs failed hard during one
// run. Entries are only ever added; create a fresh breaker per run.
type ModelBreaker struct {
	mu       sync.Mutex
	disabled map[string]string // key -> reason
}

// NewModelBreaker returns an empty run-scoped breaker.
func NewModelBreaker() *ModelBreaker {
	return &ModelBreaker{disabled: make(map[string]string)}
}

// ModelKey builds the identifier used by the breaker.
func ModelKey(provider, model string) string {
	return provider + "/" + model
}

// Disable marks key as failed for the rest of the run. The first reason wins.
func (b *ModelBreaker) Disable(key, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.disabled[key]; !ok {
		b.disabled[key] = reason
	}
}

// Disabled reports whether key was marked failed.
func (b *ModelBreaker) Disabled(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.disabled[key]
	return ok
}

// Snapshot returns the disabled keys in sorted order.
func (b *ModelBreaker) Snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.disabled))
	for k := range b.disabled {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

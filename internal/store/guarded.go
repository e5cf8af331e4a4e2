package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/resilience"
)

// Guarded wraps a Destination with one circuit breaker per schema. While a
// schema's breaker is open its calls fail fast with resilience.ErrCircuitOpen.
type Guarded struct {
	next     Destination
	breakers *resilience.Breakers
}

// NewGuarded wraps next. cfg.OnStateChange is replaced with a logger when unset.
func NewGuarded(next Destination, cfg resilience.CircuitBreakerConfig) *Guarded {
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(schema string, from, to resilience.CircuitState) {
			zap.L().Warn("store: breaker state change",
				zap.String("schema", schema),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &Guarded{next: next, breakers: resilience.NewBreakers(cfg)}
}

// States reports each schema's breaker state.
func (g *Guarded) States() map[string]resilience.CircuitState {
	return g.breakers.States()
}

func (g *Guarded) SelectEq(ctx context.Context, schema, table, fields, column, value string) ([]Row, error) {
	return resilience.ExecuteVal(ctx, g.breakers.For(schema), func(ctx context.Context) ([]Row, error) {
		return g.next.SelectEq(ctx, schema, table, fields, column, value)
	})
}

func (g *Guarded) Insert(ctx context.Context, schema, table string, row Row) error {
	return g.breakers.For(schema).Execute(ctx, func(ctx context.Context) error {
		return g.next.Insert(ctx, schema, table, row)
	})
}

func (g *Guarded) Upsert(ctx context.Context, schema, table string, row Row, onConflict string) error {
	return g.breakers.For(schema).Execute(ctx, func(ctx context.Context) error {
		return g.next.Upsert(ctx, schema, table, row, onConflict)
	})
}

func (g *Guarded) UpsertMany(ctx context.Context, schema, table string, rows []Row, onConflict string) error {
	return g.breakers.For(schema).Execute(ctx, func(ctx context.Context) error {
		return g.next.UpsertMany(ctx, schema, table, rows, onConflict)
	})
}

func (g *Guarded) UpdateEq(ctx context.Context, schema, table string, patch Row, column, value string) error {
	return g.breakers.For(schema).Execute(ctx, func(ctx context.Context) error {
		return g.next.UpdateEq(ctx, schema, table, patch, column, value)
	})
}

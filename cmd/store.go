package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/db"
	"github.com/visita-intel/newsintel/internal/resilience"
	"github.com/visita-intel/newsintel/internal/store"
	"github.com/visita-intel/newsintel/pkg/postgrest"
)

// initStore opens the destination named by the store driver and wraps it
// in the per-schema circuit breaker. Dry runs always write to memory. The
// returned func releases the destination.
func initStore(ctx context.Context) (store.Destination, func(), error) {
	noop := func() {}

	driver := cfg.Store.Driver
	if cfg.Run.DryRun && driver != "memory" {
		zap.L().Info("dry run, writing to in-memory store", zap.String("configured_driver", driver))
		driver = "memory"
	}

	var (
		dest    store.Destination
		closeFn = noop
	)
	switch driver {
	case "postgrest":
		if cfg.Store.URL == "" || cfg.Store.Key == "" {
			return nil, noop, eris.New("store: postgrest requires url and key (SUPABASE_URL, SUPABASE_KEY)")
		}
		dest = postgrest.NewClient(cfg.Store.URL, cfg.Store.Key)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, noop, eris.New("store: postgres requires database_url")
		}
		pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{MaxConns: cfg.Store.MaxConns})
		if err != nil {
			return nil, noop, err
		}
		dest = pg
		closeFn = func() { _ = pg.Close() }
	case "memory":
		dest = store.NewMemory()
	default:
		return nil, noop, eris.Errorf("unsupported store driver: %s", driver)
	}

	breaker := resilience.FromCircuitConfig(cfg.Store.Breaker.FailureThreshold, cfg.Store.Breaker.ResetTimeoutSecs)
	zap.L().Info("store ready", zap.String("driver", driver))
	return store.NewGuarded(dest, breaker), closeFn, nil
}

// Package dataset is the append-only sink for enriched records, one per
// successfully analysed article.
package dataset

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/internal/model"
)

// Sink consumes dataset records.
type Sink interface {
	Push(ctx context.Context, rec model.DatasetRecord) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverJSONL  = "jsonl"
	DriverSQLite = "sqlite"
)

// Open creates the sink named by driver writing to path. An empty path
// with the jsonl driver writes to stdout.
func Open(ctx context.Context, driver, path string) (Sink, error) {
	switch driver {
	case "", DriverJSONL:
		if path == "" || path == "-" {
			return NewJSONL(stdout), nil
		}
		return CreateJSONL(path)
	case DriverSQLite:
		s, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("dataset: unknown driver %q", driver)
	}
}

// Package store persists routed records into the multi-schema destination.
package store

import (
	"context"
	"strings"

	"github.com/visita-intel/newsintel/pkg/postgrest"
)

// Row is one record keyed by column name.
type Row = map[string]any

// Destination is the table-level write surface of the multi-schema store.
// Implementations address tables as (schema, table).
type Destination interface {
	// SelectEq returns rows whose column equals value, projecting the
	// comma-separated columns in fields.
	SelectEq(ctx context.Context, schema, table, fields, column, value string) ([]Row, error)
	Insert(ctx context.Context, schema, table string, row Row) error
	// Upsert inserts or overwrites the row identified by onConflict, a
	// comma-separated list of key columns.
	Upsert(ctx context.Context, schema, table string, row Row, onConflict string) error
	// UpsertMany is Upsert for a batch of rows sharing the same keys.
	UpsertMany(ctx context.Context, schema, table string, rows []Row, onConflict string) error
	UpdateEq(ctx context.Context, schema, table string, patch Row, column, value string) error
}

// The PostgREST client is used as a Destination as-is.
var _ Destination = (postgrest.Client)(nil)

// conflictKeys splits a comma-separated on_conflict target.
func conflictKeys(onConflict string) []string {
	var keys []string
	for _, k := range strings.Split(onConflict, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

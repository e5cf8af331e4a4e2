package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Schema       string   // target schema (e.g., "ai_intelligence")
	Table        string   // target table (e.g., "feed_items")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// BulkUpsert COPYs rows into a temp table dropped on commit, then merges them
// into the target with INSERT ... ON CONFLICT. Rows repeating a conflict key
// are collapsed first, last one wins; the same story often appears in more
// than one feed of a batch.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	rows, err := collapseByKeys(cfg.Columns, cfg.ConflictKeys, rows)
	if err != nil {
		return 0, err
	}

	target := QualifiedName(cfg.Schema, cfg.Table)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := fmt.Sprintf("_tmp_upsert_%s_%s", cfg.Schema, cfg.Table)

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		target,
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", target)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", target)
	}

	colList := quoteAndJoin(cfg.Columns)
	conflictList := quoteAndJoin(cfg.ConflictKeys)

	action := "DO NOTHING"
	if len(updateCols) > 0 {
		setClauses := make([]string, 0, len(updateCols))
		for _, col := range updateCols {
			q := QuoteIdent(col)
			setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
		}
		action = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}

	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		target,
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		conflictList,
		action,
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", target)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return tag.RowsAffected(), nil
}

// collapseByKeys drops earlier rows whose conflict key values repeat in a
// later row, preserving first-seen order.
func collapseByKeys(columns, keys []string, rows [][]any) ([][]any, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		idx[i] = -1
		for j, c := range columns {
			if c == k {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, eris.Errorf("db: upsert: conflict key %q is not a column", k)
		}
	}

	pos := make(map[string]int, len(rows))
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(idx))
		for i, j := range idx {
			parts[i] = fmt.Sprint(row[j])
		}
		key := strings.Join(parts, "\x00")
		if at, ok := pos[key]; ok {
			out[at] = row
			continue
		}
		pos[key] = len(out)
		out = append(out, row)
	}
	return out, nil
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

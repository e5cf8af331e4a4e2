package store

import (
	"context"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/internal/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres writes to the destination schemas over a direct database
// connection instead of the REST gateway.
type Postgres struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to connString.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*Postgres, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &Postgres{pool: pool, closeFn: pool.Close}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

func (p *Postgres) SelectEq(ctx context.Context, schema, table, fields, column, value string) ([]Row, error) {
	cols := []string{"*"}
	if strings.TrimSpace(fields) != "" {
		cols = cols[:0]
		for _, f := range strings.Split(fields, ",") {
			cols = append(cols, db.QuoteIdent(strings.TrimSpace(f)))
		}
	}

	query, args, err := psql.Select(cols...).
		From(db.QualifiedName(schema, table)).
		Where(sq.Eq{db.QuoteIdent(column): value}).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build select")
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select %s.%s", schema, table)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scan %s.%s", schema, table)
	}
	return out, nil
}

func (p *Postgres) Insert(ctx context.Context, schema, table string, row Row) error {
	query, args, err := psql.Insert(db.QualifiedName(schema, table)).
		SetMap(quoteKeys(row)).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build insert")
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: insert %s.%s", schema, table)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, schema, table string, row Row, onConflict string) error {
	query, args, err := psql.Insert(db.QualifiedName(schema, table)).
		SetMap(quoteKeys(row)).
		Suffix(conflictClause(sortedKeys(row), onConflict)).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build upsert")
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: upsert %s.%s", schema, table)
	}
	return nil
}

// UpsertMany stages the batch through a temp table. Columns are the union
// of the rows' keys; missing values are NULL.
func (p *Postgres) UpsertMany(ctx context.Context, schema, table string, rows []Row, onConflict string) error {
	if len(rows) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var columns []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	values := make([][]any, len(rows))
	for i, r := range rows {
		vals := make([]any, len(columns))
		for j, c := range columns {
			vals[j] = r[c]
		}
		values[i] = vals
	}

	_, err := db.BulkUpsert(ctx, p.pool, db.UpsertConfig{
		Schema:       schema,
		Table:        table,
		Columns:      columns,
		ConflictKeys: conflictKeys(onConflict),
	}, values)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert %d rows into %s.%s", len(rows), schema, table)
	}
	return nil
}

func (p *Postgres) UpdateEq(ctx context.Context, schema, table string, patch Row, column, value string) error {
	query, args, err := psql.Update(db.QualifiedName(schema, table)).
		SetMap(quoteKeys(patch)).
		Where(sq.Eq{db.QuoteIdent(column): value}).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build update")
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: update %s.%s", schema, table)
	}
	return nil
}

func quoteKeys(row Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[db.QuoteIdent(k)] = v
	}
	return out
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// conflictClause overwrites every non-key column on conflict.
func conflictClause(columns []string, onConflict string) string {
	keys := conflictKeys(onConflict)
	isKey := make(map[string]bool, len(keys))
	quoted := make([]string, len(keys))
	for i, k := range keys {
		isKey[k] = true
		quoted[i] = db.QuoteIdent(k)
	}
	target := "ON CONFLICT (" + strings.Join(quoted, ", ") + ")"

	var sets []string
	for _, c := range columns {
		if isKey[c] {
			continue
		}
		q := db.QuoteIdent(c)
		sets = append(sets, q+" = EXCLUDED."+q)
	}
	if len(sets) == 0 {
		return target + " DO NOTHING"
	}
	return target + " DO UPDATE SET " + strings.Join(sets, ", ")
}

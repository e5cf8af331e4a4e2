package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/visita-intel/newsintel/internal/model"
)

// SQLite keeps dataset records in a local database for offline export.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dataset_records (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	niche      TEXT NOT NULL,
	url        TEXT NOT NULL,
	sentiment  TEXT NOT NULL,
	category   TEXT NOT NULL,
	method     TEXT NOT NULL,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dataset_records_run_id ON dataset_records(run_id);
CREATE INDEX IF NOT EXISTS idx_dataset_records_url ON dataset_records(url);
`

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Push(ctx context.Context, rec model.DatasetRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dataset_records (id, run_id, niche, url, sentiment, category, method, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), rec.RunID, string(rec.Niche), rec.URL, rec.Sentiment, rec.Category,
		string(rec.Method), string(body), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert record %s", rec.URL)
	}
	return nil
}

// Records returns a run's records in insertion order.
func (s *SQLite) Records(ctx context.Context, runID string) ([]model.DatasetRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM dataset_records WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query records for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.DatasetRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		var rec model.DatasetRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Schema:       "ai_intelligence",
		Table:        "feed_items",
		Columns:      []string{"url", "title"},
		ConflictKeys: []string{"url"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "feed_items",
		ConflictKeys: []string{"url"},
	}, [][]any{{"https://a.test", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "feed_items",
		Columns: []string{"url", "title"},
	}, [][]any{{"https://a.test", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_TempTableFlow(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{
		{"https://a.test/1", "One", "pending"},
		{"https://a.test/2", "Two", "pending"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_ai_intelligence_feed_items" \(LIKE "ai_intelligence"\."feed_items" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_ai_intelligence_feed_items"}, []string{"url", "title", "status"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "ai_intelligence"\."feed_items" \("url", "title", "status"\) SELECT .* ON CONFLICT \("url"\) DO UPDATE SET "title" = EXCLUDED\."title", "status" = EXCLUDED\."status"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Schema:       "ai_intelligence",
		Table:        "feed_items",
		Columns:      []string{"url", "title", "status"},
		ConflictKeys: []string{"url"},
	}, rows)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_ai_intelligence_feed_items"}, []string{"url"}).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Schema:       "ai_intelligence",
		Table:        "feed_items",
		Columns:      []string{"url"},
		ConflictKeys: []string{"url"},
	}, [][]any{{"https://a.test"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CollapsesRepeatedKeys(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_ai_intelligence_feed_items"}, []string{"url", "status"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Schema:       "ai_intelligence",
		Table:        "feed_items",
		Columns:      []string{"url", "status"},
		ConflictKeys: []string{"url"},
	}, [][]any{
		{"https://a.test/1", "pending"},
		{"https://a.test/2", "pending"},
		{"https://a.test/1", "processed"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBulkUpsert_UnknownConflictKey(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "incidents",
		Columns:      []string{"source_url"},
		ConflictKeys: []string{"source_url", "description"},
	}, [][]any{{"https://a.test"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `conflict key "description" is not a column`)
}

func TestCollapseByKeys(t *testing.T) {
	rows, err := collapseByKeys(
		[]string{"source_url", "description", "severity"},
		[]string{"source_url", "description"},
		[][]any{
			{"https://a.test", "robbery", 1},
			{"https://a.test", "assault", 2},
			{"https://a.test", "robbery", 3},
		})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"https://a.test", "robbery", 3},
		{"https://a.test", "assault", 2},
	}, rows)
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		schema, table string
		expected      string
	}{
		{"", "entries", `"entries"`},
		{"crime_intelligence", "incidents", `"crime_intelligence"."incidents"`},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, QualifiedName(tt.schema, tt.table))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"url", "title", "status"})
	assert.Equal(t, `"url", "title", "status"`, result)
}

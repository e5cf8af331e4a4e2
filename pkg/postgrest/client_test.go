package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAuth(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "service-key", r.Header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
}

func TestSelectEq(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assertAuth(t, r)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/crypto", r.URL.Path)
		assert.Equal(t, "ai_intelligence", r.Header.Get("Accept-Profile"))
		assert.Empty(t, r.Header.Get("Content-Profile"))
		assert.Equal(t, "url", r.URL.Query().Get("select"))
		assert.Equal(t, "eq.https://a.test/x?id=1", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`[{"url":"https://a.test/x?id=1"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "service-key")
	rows, err := c.SelectEq(context.Background(), "ai_intelligence", "crypto", "url", "url", "https://a.test/x?id=1")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://a.test/x?id=1", rows[0]["url"])
}

func TestSelectEq_Empty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rows, err := NewClient(srv.URL, "service-key").SelectEq(context.Background(), "s", "t", "id", "name", "x")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assertAuth(t, r)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/election_news", r.URL.Path)
		assert.Equal(t, "gov_intelligence", r.Header.Get("Content-Profile"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "resolution=merge-duplicates,return=minimal", r.Header.Get("Prefer"))
		assert.Equal(t, "source_url", r.URL.Query().Get("on_conflict"))

		var row map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "https://a.test", row["source_url"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "service-key").Upsert(context.Background(),
		"gov_intelligence", "election_news", Row{"source_url": "https://a.test"}, "source_url")
	require.NoError(t, err)
}

func TestUpsertMany(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/rest/v1/feed_items", r.URL.Path)
		assert.Equal(t, "url", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=minimal", r.Header.Get("Prefer"))

		var rows []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		assert.Len(t, rows, 2)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")
	err := c.UpsertMany(context.Background(), "ai_intelligence", "feed_items",
		[]Row{{"url": "https://a.test/1"}, {"url": "https://a.test/2"}}, "url")
	require.NoError(t, err)

	require.NoError(t, c.UpsertMany(context.Background(), "ai_intelligence", "feed_items", nil, "url"))
	assert.Equal(t, int32(1), calls.Load(), "empty batches are not sent")
}

func TestInsert(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "people_intelligence", r.Header.Get("Content-Profile"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "service-key").Insert(context.Background(),
		"people_intelligence", "master_identities", Row{"full_name": "Jane Doe"})
	require.NoError(t, err)
}

func TestUpdateEq(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
		assert.Equal(t, "people_intelligence", r.Header.Get("Content-Profile"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "service-key").UpdateEq(context.Background(),
		"people_intelligence", "master_identities", Row{"last_seen_at": "2025-06-15T12:00:00Z"}, "id", "42")
	require.NoError(t, err)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		call   func(Client) error
	}{
		{"select missing table", http.StatusNotFound, func(c Client) error {
			_, err := c.SelectEq(context.Background(), "ai_intelligence", "nope", "url", "url", "x")
			return err
		}},
		{"upsert conflict", http.StatusConflict, func(c Client) error {
			return c.Upsert(context.Background(), "ai_intelligence", "entries", Row{}, "url")
		}},
		{"insert server error", http.StatusServiceUnavailable, func(c Client) error {
			return c.Insert(context.Background(), "s", "t", Row{})
		}},
		{"update unauthorized", http.StatusUnauthorized, func(c Client) error {
			return c.UpdateEq(context.Background(), "s", "t", Row{}, "id", "1")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"failed"}`))
			}))
			defer srv.Close()

			err := tt.call(NewClient(srv.URL, "service-key"))
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.Contains(t, apiErr.Body, "failed")
		})
	}
}

func TestSelectEq_Malformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").SelectEq(context.Background(), "s", "t", "", "url", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal rows")
}

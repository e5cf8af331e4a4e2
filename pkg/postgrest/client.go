// Package postgrest is a minimal client for a PostgREST (Supabase) REST
// endpoint that addresses tables across several Postgres schemas.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	restPath     = "/rest/v1/"
	maxErrorBody = 512
)

// Row is one JSON object sent to or returned by the API.
type Row = map[string]any

// Client defines the table operations used by the router.
type Client interface {
	// SelectEq returns the rows of schema.table whose column equals value,
	// projecting the comma-separated columns in fields.
	SelectEq(ctx context.Context, schema, table, fields, column, value string) ([]Row, error)
	// Insert adds one row.
	Insert(ctx context.Context, schema, table string, row Row) error
	// Upsert inserts or merges one row keyed by onConflict.
	Upsert(ctx context.Context, schema, table string, row Row, onConflict string) error
	// UpsertMany merges rows in a single request. Every row must carry the same keys.
	UpsertMany(ctx context.Context, schema, table string, rows []Row, onConflict string) error
	// UpdateEq patches every row whose column equals value.
	UpdateEq(ctx context.Context, schema, table string, patch Row, column, value string) error
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postgrest: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus implements resilience.StatusCoder.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for the project at baseURL (for example
// https://xyz.supabase.co) authenticated with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SelectEq(ctx context.Context, schema, table, fields, column, value string) ([]Row, error) {
	params := url.Values{}
	if fields != "" {
		params.Set("select", fields)
	}
	params.Set(column, "eq."+value)

	body, err := c.do(ctx, http.MethodGet, schema, table, params, nil, "")
	if err != nil {
		return nil, eris.Wrapf(err, "postgrest: select %s.%s", schema, table)
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "postgrest: unmarshal rows")
	}
	return rows, nil
}

func (c *httpClient) Insert(ctx context.Context, schema, table string, row Row) error {
	_, err := c.do(ctx, http.MethodPost, schema, table, nil, row, "return=minimal")
	if err != nil {
		return eris.Wrapf(err, "postgrest: insert %s.%s", schema, table)
	}
	return nil
}

func (c *httpClient) Upsert(ctx context.Context, schema, table string, row Row, onConflict string) error {
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	_, err := c.do(ctx, http.MethodPost, schema, table, params, row, "resolution=merge-duplicates,return=minimal")
	if err != nil {
		return eris.Wrapf(err, "postgrest: upsert %s.%s", schema, table)
	}
	return nil
}

func (c *httpClient) UpsertMany(ctx context.Context, schema, table string, rows []Row, onConflict string) error {
	if len(rows) == 0 {
		return nil
	}
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	_, err := c.do(ctx, http.MethodPost, schema, table, params, rows, "resolution=merge-duplicates,return=minimal")
	if err != nil {
		return eris.Wrapf(err, "postgrest: upsert %d rows into %s.%s", len(rows), schema, table)
	}
	return nil
}

func (c *httpClient) UpdateEq(ctx context.Context, schema, table string, patch Row, column, value string) error {
	params := url.Values{}
	params.Set(column, "eq."+value)
	_, err := c.do(ctx, http.MethodPatch, schema, table, params, patch, "return=minimal")
	if err != nil {
		return eris.Wrapf(err, "postgrest: update %s.%s", schema, table)
	}
	return nil
}

// do sends one request. Reads select the schema with Accept-Profile and
// writes with Content-Profile.
func (c *httpClient) do(ctx context.Context, method, schema, table string, params url.Values, payload any, prefer string) ([]byte, error) {
	reqURL := c.baseURL + restPath + url.PathEscape(table)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "marshal payload")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if method == http.MethodGet {
		req.Header.Set("Accept-Profile", schema)
	} else {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Profile", schema)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: msg}
	}
	return body, nil
}

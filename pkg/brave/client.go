// Package brave is a client for the Brave Search web and image APIs with
// rotation across several subscription keys.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultBaseURL  = "https://api.search.brave.com"
	webSearchPath   = "/res/v1/web/search"
	imageSearchPath = "/res/v1/images/search"

	maxErrorBody = 256
)

// ErrNoKeys is returned when the client was built without any key.
var ErrNoKeys = eris.New("brave: no api keys configured")

// Client defines the Brave Search operations.
type Client interface {
	// WebSearch runs a web search.
	WebSearch(ctx context.Context, query string, opts WebSearchOptions) (*WebSearchResponse, error)
	// ImageSearch runs an image search.
	ImageSearch(ctx context.Context, query string, count int) (*ImageSearchResponse, error)
}

// WebSearchOptions tunes a web search.
type WebSearchOptions struct {
	Count         int
	ExtraSnippets bool
	SearchLang    string
}

// WebSearchResponse is the subset of the web search response we use.
type WebSearchResponse struct {
	Web struct {
		Results []WebResult `json:"results"`
	} `json:"web"`
}

// WebResult is one web hit.
type WebResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	ExtraSnippets []string `json:"extra_snippets"`
}

// ImageSearchResponse is the subset of the image search response we use.
type ImageSearchResponse struct {
	Results []ImageResult `json:"results"`
}

// ImageResult is one image hit.
type ImageResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail struct {
		Src string `json:"src"`
	} `json:"thumbnail"`
	Properties struct {
		URL string `json:"url"`
	} `json:"properties"`
}

// ImageURL returns the full-size image URL, falling back to the thumbnail.
func (r ImageResult) ImageURL() string {
	if r.Properties.URL != "" {
		return r.Properties.URL
	}
	return r.Thumbnail.Src
}

// APIError is returned for any non-200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brave: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus implements resilience.StatusCoder.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// rotates reports whether a status should move on to the next key.
func rotates(status int) bool {
	return status == http.StatusUnauthorized ||
		status == http.StatusForbidden ||
		status == http.StatusTooManyRequests
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	keys    []string
	baseURL string
	http    *http.Client
}

// NewClient creates a Brave Search client. Keys are tried in order; empty
// keys are ignored. A key answering 401, 403 or 429 hands the request to the
// next one.
func NewClient(keys []string, opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, k := range keys {
		if k != "" {
			c.keys = append(c.keys, k)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) WebSearch(ctx context.Context, query string, opts WebSearchOptions) (*WebSearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if opts.Count > 0 {
		params.Set("count", strconv.Itoa(opts.Count))
	}
	if opts.ExtraSnippets {
		params.Set("extra_snippets", "true")
	}
	if opts.SearchLang != "" {
		params.Set("search_lang", opts.SearchLang)
	}

	body, err := c.get(ctx, webSearchPath, params)
	if err != nil {
		return nil, eris.Wrap(err, "brave: web search")
	}

	var result WebSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "brave: unmarshal web search response")
	}
	return &result, nil
}

func (c *httpClient) ImageSearch(ctx context.Context, query string, count int) (*ImageSearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}

	body, err := c.get(ctx, imageSearchPath, params)
	if err != nil {
		return nil, eris.Wrap(err, "brave: image search")
	}

	var result ImageSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "brave: unmarshal image search response")
	}
	return &result, nil
}

// get issues the request with each key in turn until one is accepted.
func (c *httpClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if len(c.keys) == 0 {
		return nil, ErrNoKeys
	}

	reqURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for i, key := range c.keys {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "brave: create request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", key)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "brave: send request")
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "brave: read response")
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		lastErr = &APIError{StatusCode: resp.StatusCode, Body: msg}
		if !rotates(resp.StatusCode) {
			return nil, lastErr
		}
		zap.L().Warn("brave: key rejected, rotating",
			zap.Int("key_slot", i+1),
			zap.Int("status", resp.StatusCode),
		)
	}
	return nil, lastErr
}

package brave

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, webSearchPath, r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		q := r.URL.Query()
		assert.Equal(t, "Valve announces sequel", q.Get("q"))
		assert.Equal(t, "5", q.Get("count"))
		assert.Equal(t, "true", q.Get("extra_snippets"))
		assert.Equal(t, "en", q.Get("search_lang"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Sequel confirmed","url":"https://a.test","description":"Valve said","extra_snippets":["more","detail"]}
		]}}`))
	}))
	defer srv.Close()

	client := NewClient([]string{"key-1"}, WithBaseURL(srv.URL))
	resp, err := client.WebSearch(context.Background(), "Valve announces sequel", WebSearchOptions{
		Count: 5, ExtraSnippets: true, SearchLang: "en",
	})

	require.NoError(t, err)
	require.Len(t, resp.Web.Results, 1)
	assert.Equal(t, "Sequel confirmed", resp.Web.Results[0].Title)
	assert.Equal(t, []string{"more", "detail"}, resp.Web.Results[0].ExtraSnippets)
}

func TestWebSearch_RotatesOnRejectedKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"rate limited", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				key := r.Header.Get("X-Subscription-Token")
				seen = append(seen, key)
				if key == "primary" {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(`{"web":{"results":[{"title":"ok"}]}}`))
			}))
			defer srv.Close()

			client := NewClient([]string{"primary", "", "secondary"}, WithBaseURL(srv.URL))
			resp, err := client.WebSearch(context.Background(), "q", WebSearchOptions{})

			require.NoError(t, err)
			assert.Len(t, resp.Web.Results, 1)
			assert.Equal(t, []string{"primary", "secondary"}, seen)
		})
	}
}

func TestWebSearch_DoesNotRotateOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient([]string{"a", "b", "c"}, WithBaseURL(srv.URL))
	_, err := client.WebSearch(context.Background(), "q", WebSearchOptions{})

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatus())
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebSearch_AllKeysRejected(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient([]string{"a", "b", "c"}, WithBaseURL(srv.URL))
	_, err := client.WebSearch(context.Background(), "q", WebSearchOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebSearch_NoKeys(t *testing.T) {
	t.Parallel()

	client := NewClient([]string{"", ""})
	_, err := client.WebSearch(context.Background(), "q", WebSearchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoKeys))
}

func TestImageSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, imageSearchPath, r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"full","properties":{"url":"https://img.test/full.jpg"},"thumbnail":{"src":"https://img.test/t.jpg"}},
			{"title":"thumb only","thumbnail":{"src":"https://img.test/t2.jpg"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient([]string{"k"}, WithBaseURL(srv.URL))
	resp, err := client.ImageSearch(context.Background(), "cover", 1)

	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://img.test/full.jpg", resp.Results[0].ImageURL())
	assert.Equal(t, "https://img.test/t2.jpg", resp.Results[1].ImageURL())
}

func TestImageSearch_Malformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient([]string{"k"}, WithBaseURL(srv.URL)).ImageSearch(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal image search response")
}

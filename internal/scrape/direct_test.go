package scrape

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visita-intel/newsintel/internal/model"
)

var longParagraph = strings.Repeat("Valve confirmed the sequel will ship next spring on every platform. ", 10)

func serveHTML(t *testing.T, status int, page string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BrowserUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDirect_ContainerPriority(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		contains string
		excludes string
	}{
		{
			name:     "article wins",
			page:     `<html><body><main>MAIN ` + longParagraph + `</main><article><h1>Sequel</h1><p>ARTICLE ` + longParagraph + `</p></article></body></html>`,
			contains: "Sequel ARTICLE",
			excludes: "MAIN",
		},
		{
			name:     "main when no article",
			page:     `<html><body><div class="sidebar">SIDE</div><main><p>MAIN</p><p>` + longParagraph + `</p></main></body></html>`,
			contains: "MAIN Valve",
			excludes: "SIDE",
		},
		{
			name:     "class heuristic",
			page:     `<html><body><div class="menu">MENU</div><div class="entry-content"><p>CLASS ` + longParagraph + `</p></div></body></html>`,
			contains: "CLASS",
			excludes: "MENU",
		},
		{
			name:     "whole page fallback",
			page:     `<html><head><title>T</title></head><body><div><p>WHOLE ` + longParagraph + `</p></div><script>var x = 1;</script></body></html>`,
			contains: "WHOLE",
			excludes: "var x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveHTML(t, http.StatusOK, tt.page)

			att, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
			require.NoError(t, err)
			assert.Equal(t, model.MethodScraped, att.Method)
			assert.Contains(t, att.Text, tt.contains)
			assert.NotContains(t, att.Text, tt.excludes)
			assert.NotContains(t, att.Text, "  ", "whitespace is collapsed")
		})
	}
}

func TestDirect_SoftBlockStatuses(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests} {
		srv := serveHTML(t, status, "<html><body>"+longParagraph+"</body></html>")

		att, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
		require.Error(t, err)
		assert.Nil(t, att)

		var blockErr *BlockError
		require.True(t, errors.As(err, &blockErr), "status %d", status)
		assert.Equal(t, status, blockErr.HTTPStatus())
	}
}

func TestDirect_NonSuccessStatus(t *testing.T) {
	srv := serveHTML(t, http.StatusNotFound, "<html><body>"+longParagraph+"</body></html>")

	_, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDirect_ThinContentKeepsImage(t *testing.T) {
	page := `<html><head><meta property="og:image" content="/img/cover.jpg"></head>
		<body><article>Accept cookies to continue.</article></body></html>`
	srv := serveHTML(t, http.StatusOK, page)

	att, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrThinContent))
	require.NotNil(t, att)
	assert.Empty(t, att.Text)
	assert.Equal(t, srv.URL+"/img/cover.jpg", att.ImageURL)
}

func TestDirect_MinAndMaxChars(t *testing.T) {
	page := "<html><body><article>" + strings.Repeat("word ", 100) + "</article></body></html>"
	srv := serveHTML(t, http.StatusOK, page)

	att, err := NewDirect(DirectOptions{MinChars: 50, MaxChars: 20}).Attempt(context.Background(), Target{URL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, att.Text, 20)
}

func TestDirect_ImageHeuristic(t *testing.T) {
	tests := []struct {
		name string
		head string
		body string
		want string
	}{
		{
			name: "open graph first",
			head: `<meta name="twitter:image" content="https://cdn.test/tw.jpg"><meta property="og:image" content="https://cdn.test/og.jpg">`,
			body: `<img src="https://cdn.test/inline.jpg">`,
			want: "https://cdn.test/og.jpg",
		},
		{
			name: "twitter card",
			head: `<meta name="twitter:image" content="https://cdn.test/tw.jpg">`,
			want: "https://cdn.test/tw.jpg",
		},
		{
			name: "json-ld image object in graph",
			head: `<script type="application/ld+json">{"@graph":[{"@type":"WebSite"},{"@type":"NewsArticle","image":{"@type":"ImageObject","url":"https://cdn.test/ld.jpg"}}]}</script>`,
			body: `<img src="https://cdn.test/inline.jpg">`,
			want: "https://cdn.test/ld.jpg",
		},
		{
			name: "json-ld image list",
			head: `<script type="application/ld+json">{"image":["https://cdn.test/a.jpg","https://cdn.test/b.jpg"]}</script>`,
			want: "https://cdn.test/a.jpg",
		},
		{
			name: "first non-icon image in container",
			body: `<img src="/static/site-logo.png"><img src="data:image/gif;base64,AAA" data-src="/img/lazy.jpg"><img src="/img/second.jpg">`,
			want: "/img/lazy.jpg",
		},
		{
			name: "tracking pixel skipped",
			body: `<img src="/t.gif" width="1"><img src="/img/photo.jpg">`,
			want: "/img/photo.jpg",
		},
		{
			name: "no image",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := "<html><head>" + tt.head + "</head><body><article>" + tt.body + "<p>" + longParagraph + "</p></article></body></html>"
			srv := serveHTML(t, http.StatusOK, page)

			att, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
			require.NoError(t, err)
			want := tt.want
			if strings.HasPrefix(want, "/") {
				want = srv.URL + want
			}
			assert.Equal(t, want, att.ImageURL)
		})
	}
}

func TestDirect_Compression(t *testing.T) {
	page := "<html><body><article>" + longParagraph + "</article></body></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(page))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(page))
	require.NoError(t, bw.Close())

	for encoding, payload := range map[string][]byte{"gzip": gz.Bytes(), "br": br.Bytes()} {
		t.Run(encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(payload)
			}))
			defer srv.Close()

			att, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
			require.NoError(t, err)
			assert.Contains(t, att.Text, "Valve confirmed")
		})
	}
}

func TestDirect_Charset(t *testing.T) {
	page := "<html><body><article>Caf\xe9 " + longParagraph + "</article></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	att, err := NewDirect(DirectOptions{}).Attempt(context.Background(), Target{URL: srv.URL})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.Text, "Café "))
}

func TestDirect_Supports(t *testing.T) {
	d := NewDirect(DirectOptions{Exclude: NewPathMatcher(nil)})
	assert.False(t, d.Supports("https://news.test/video/clip"))
	assert.True(t, d.Supports("https://news.test/2025/story"))
	assert.True(t, NewDirect(DirectOptions{}).Supports("https://news.test/video/clip"))
}

package scrape

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visita-intel/newsintel/internal/model"
)

// stubStrategy records calls and returns a canned outcome.
type stubStrategy struct {
	name     string
	supports bool
	attempt  *Attempt
	err      error
	calls    int
}

func (s *stubStrategy) Name() string           { return s.name }
func (s *stubStrategy) Supports(_ string) bool { return s.supports }
func (s *stubStrategy) Attempt(_ context.Context, _ Target) (*Attempt, error) {
	s.calls++
	return s.attempt, s.err
}

type stubImages struct {
	url   string
	err   error
	query string
	calls int
}

func (s *stubImages) SearchImage(_ context.Context, query string) (string, int, error) {
	s.calls++
	s.query = query
	return s.url, 1, s.err
}

func searchStub() *stubStrategy {
	return &stubStrategy{
		name: "search", supports: true,
		attempt: &Attempt{Text: "Search Results:\n- Title: t", Method: model.MethodSearchFallback},
	}
}

func TestAcquire_FirstTierWins(t *testing.T) {
	direct := &stubStrategy{name: "direct", supports: true, attempt: &Attempt{Text: "body", Method: model.MethodScraped}}
	search := searchStub()

	got := NewAcquirer([]Strategy{direct, search}).Acquire(context.Background(), "https://a.test", "Title", "")

	assert.Equal(t, "body", got.Text)
	assert.Equal(t, model.MethodScraped, got.Method)
	assert.Equal(t, 0, search.calls, "search is only used when earlier tiers fail")
}

func TestAcquire_FallsBackOnSoftBlock(t *testing.T) {
	srv := serveHTML(t, http.StatusForbidden, "<html><body>"+longParagraph+"</body></html>")
	search := searchStub()

	acq := NewAcquirer([]Strategy{NewDirect(DirectOptions{}), search})
	got := acq.Acquire(context.Background(), srv.URL, "Valve announces sequel", "")

	assert.Equal(t, 1, search.calls)
	assert.Equal(t, model.MethodSearchFallback, got.Method)
	assert.True(t, strings.HasPrefix(got.Text, "Search Results:"))
}

func TestAcquire_FallsBackOnShortText(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, "<html><body><article>Subscribe to read.</article></body></html>")
	search := searchStub()

	got := NewAcquirer([]Strategy{NewDirect(DirectOptions{}), search}).
		Acquire(context.Background(), srv.URL, "Valve announces sequel", "")

	assert.Equal(t, 1, search.calls)
	assert.Equal(t, model.MethodSearchFallback, got.Method)
}

func TestAcquire_AllTiersFail(t *testing.T) {
	direct := &stubStrategy{name: "direct", supports: true, err: errors.New("blocked")}
	search := &stubStrategy{name: "search", supports: true, err: errors.New("no key")}

	got := NewAcquirer([]Strategy{direct, search}).Acquire(context.Background(), "https://a.test", "T", "")

	assert.False(t, got.HasText())
	assert.Equal(t, model.MethodNone, got.Method)
	assert.Empty(t, got.ImageURL)
}

func TestAcquire_SkipsUnsupportedTier(t *testing.T) {
	direct := &stubStrategy{name: "direct", supports: false, attempt: &Attempt{Text: "never"}}
	search := searchStub()

	got := NewAcquirer([]Strategy{direct, search}).Acquire(context.Background(), "https://a.test/video/x", "T", "")

	assert.Equal(t, 0, direct.calls)
	assert.Equal(t, model.MethodSearchFallback, got.Method)
}

func TestAcquire_ImagePriority(t *testing.T) {
	tests := []struct {
		name          string
		feedImage     string
		scraped       string
		backfill      *stubImages
		want          string
		wantBackfills int
	}{
		{"feed beats scraped", "https://feed/img.jpg", "https://page/og.jpg", &stubImages{url: "https://bf/x.jpg"}, "https://feed/img.jpg", 0},
		{"scraped beats backfill", "", "https://page/og.jpg", &stubImages{url: "https://bf/x.jpg"}, "https://page/og.jpg", 0},
		{"backfill when nothing else", "", "", &stubImages{url: "https://bf/x.jpg"}, "https://bf/x.jpg", 1},
		{"backfill disabled", "", "", nil, "", 0},
		{"backfill error tolerated", "", "", &stubImages{err: errors.New("quota")}, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direct := &stubStrategy{name: "direct", supports: true,
				attempt: &Attempt{Text: "body", ImageURL: tt.scraped, Method: model.MethodScraped}}

			var opts []AcquirerOption
			if tt.backfill != nil {
				opts = append(opts, WithImageBackfill(tt.backfill))
			}
			got := NewAcquirer([]Strategy{direct}, opts...).
				Acquire(context.Background(), "https://a.test", `Valve's "big" news`, tt.feedImage)

			assert.Equal(t, tt.want, got.ImageURL)
			assert.Equal(t, "body", got.Text, "text channel is independent of image channel")
			if tt.backfill != nil {
				assert.Equal(t, tt.wantBackfills, tt.backfill.calls)
				if tt.wantBackfills > 0 {
					assert.Equal(t, "Valves big news", tt.backfill.query)
				}
			}
		})
	}
}

func TestAcquire_ImageFromFailedTier(t *testing.T) {
	direct := &stubStrategy{name: "direct", supports: true,
		attempt: &Attempt{ImageURL: "https://page/og.jpg"}, err: ErrThinContent}
	images := &stubImages{url: "https://bf/x.jpg"}

	got := NewAcquirer([]Strategy{direct, searchStub()}, WithImageBackfill(images)).
		Acquire(context.Background(), "https://a.test", "T", "")

	assert.Equal(t, "https://page/og.jpg", got.ImageURL)
	assert.Equal(t, model.MethodSearchFallback, got.Method)
	assert.Equal(t, 0, images.calls)
}

func TestAcquire_CountsSearchQueries(t *testing.T) {
	tests := []struct {
		name     string
		search   *stubStrategy
		images   *stubImages
		want     int
		wantText bool
	}{
		{"search wins", searchStub(), nil, 1, true},
		{"failed search still billed", &stubStrategy{name: "search", supports: true, attempt: &Attempt{Queries: 1}, err: ErrNoResults}, nil, 1, false},
		{"search without key", &stubStrategy{name: "search", supports: true, err: errors.New("no keys")}, nil, 0, false},
		{"failed search plus backfill", &stubStrategy{name: "search", supports: true, attempt: &Attempt{Queries: 1}, err: ErrNoResults}, &stubImages{err: errors.New("quota")}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direct := &stubStrategy{name: "direct", supports: true, err: ErrThinContent}
			var opts []AcquirerOption
			if tt.images != nil {
				opts = append(opts, WithImageBackfill(tt.images))
			}

			got := NewAcquirer([]Strategy{direct, tt.search}, opts...).
				Acquire(context.Background(), "https://a.test", "T", "")

			assert.Equal(t, tt.want, got.SearchQueries)
			assert.Equal(t, tt.wantText, got.HasText())
		})
	}
}

func TestTestModeAcquirer(t *testing.T) {
	got := NewTestModeAcquirer().Acquire(context.Background(), "https://example.com/x", "T", "")
	require.True(t, got.HasText())
	assert.Equal(t, TestModeText, got.Text)
	assert.Equal(t, model.MethodScraped, got.Method)
}

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "Valves big news", CleanQuery(` Valve's "big" news `))
}

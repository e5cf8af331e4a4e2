package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/pkg/brave"
)

type stubBrave struct {
	web    *brave.WebSearchResponse
	images *brave.ImageSearchResponse
	err    error
	query  string
	opts   brave.WebSearchOptions
}

func (s *stubBrave) WebSearch(_ context.Context, query string, opts brave.WebSearchOptions) (*brave.WebSearchResponse, error) {
	s.query = query
	s.opts = opts
	return s.web, s.err
}

func (s *stubBrave) ImageSearch(_ context.Context, query string, _ int) (*brave.ImageSearchResponse, error) {
	s.query = query
	return s.images, s.err
}

func webResults(results ...brave.WebResult) *brave.WebSearchResponse {
	resp := &brave.WebSearchResponse{}
	resp.Web.Results = results
	return resp
}

func TestSearch_FormatsResults(t *testing.T) {
	client := &stubBrave{web: webResults(
		brave.WebResult{Title: "Sequel confirmed", Description: "Valve said", ExtraSnippets: []string{"more", "detail"}},
		brave.WebResult{Description: "untitled"},
	)}

	att, err := NewSearch(client, 0).Attempt(context.Background(), Target{Title: `Valve's "HL3"`})
	require.NoError(t, err)

	assert.Equal(t, "Valves HL3", client.query)
	assert.Equal(t, brave.WebSearchOptions{Count: 5, ExtraSnippets: true, SearchLang: "en"}, client.opts)
	assert.Equal(t, model.MethodSearchFallback, att.Method)
	assert.Equal(t, 1, att.Queries)
	assert.Equal(t,
		"Search Results:\n- Title: Sequel confirmed\n  Snippet: Valve said more detail\n\n- Title: No Title\n  Snippet: untitled \n\n",
		att.Text)
}

func TestSearch_Truncates(t *testing.T) {
	client := &stubBrave{web: webResults(brave.WebResult{Title: "t", Description: strings.Repeat("x", 10000)})}

	att, err := NewSearch(client, 0).Attempt(context.Background(), Target{Title: "t"})
	require.NoError(t, err)
	assert.Len(t, att.Text, defaultSearchMaxChars)
}

func TestSearch_NoResults(t *testing.T) {
	att, err := NewSearch(&stubBrave{web: webResults()}, 0).Attempt(context.Background(), Target{Title: "t"})
	assert.True(t, errors.Is(err, ErrNoResults))
	require.NotNil(t, att)
	assert.Equal(t, 1, att.Queries)
	assert.Empty(t, att.Text)
}

func TestSearch_UpstreamErrorCountsQuery(t *testing.T) {
	att, err := NewSearch(&stubBrave{err: errors.New("502")}, 0).Attempt(context.Background(), Target{Title: "t"})
	require.Error(t, err)
	require.NotNil(t, att)
	assert.Equal(t, 1, att.Queries)
}

func TestSearch_NoCredential(t *testing.T) {
	att, err := NewSearch(nil, 0).Attempt(context.Background(), Target{Title: "t"})
	assert.True(t, errors.Is(err, brave.ErrNoKeys))
	assert.Nil(t, att)

	att, err = NewSearch(&stubBrave{err: brave.ErrNoKeys}, 0).Attempt(context.Background(), Target{Title: "t"})
	assert.True(t, errors.Is(err, brave.ErrNoKeys))
	assert.Nil(t, att)
}

func TestBraveImages(t *testing.T) {
	resp := &brave.ImageSearchResponse{Results: []brave.ImageResult{{}, {}}}
	resp.Results[1].Thumbnail.Src = "https://img.test/t.jpg"

	got, queries, err := NewBraveImages(&stubBrave{images: resp}).SearchImage(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/t.jpg", got)
	assert.Equal(t, 1, queries)

	_, queries, err = NewBraveImages(&stubBrave{images: &brave.ImageSearchResponse{}}).SearchImage(context.Background(), "q")
	assert.Error(t, err)
	assert.Equal(t, 1, queries)

	_, queries, err = NewBraveImages(&stubBrave{err: errors.New("boom")}).SearchImage(context.Background(), "q")
	assert.Error(t, err)
	assert.Equal(t, 1, queries)

	_, queries, err = NewBraveImages(&stubBrave{err: brave.ErrNoKeys}).SearchImage(context.Background(), "q")
	assert.Error(t, err)
	assert.Zero(t, queries)
}

package fetcher

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testChannel struct {
	XMLName xml.Name `xml:"rss"`
	Title   string   `xml:"channel>title"`
	Items   []struct {
		Title string `xml:"title"`
	} `xml:"channel>item"`
}

func TestNewXMLDecoder_UTF8(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<rss><channel><title>Gaming News</title><item><title>First</title></item></channel></rss>`

	var ch testChannel
	require.NoError(t, NewXMLDecoder(strings.NewReader(input)).Decode(&ch))
	assert.Equal(t, "Gaming News", ch.Title)
	require.Len(t, ch.Items, 1)
	assert.Equal(t, "First", ch.Items[0].Title)
}

func TestNewXMLDecoder_Latin1(t *testing.T) {
	// "Café" in ISO-8859-1: 0xE9 for é.
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<rss><channel><title>Caf\xe9</title></channel></rss>"

	var ch testChannel
	require.NoError(t, NewXMLDecoder(strings.NewReader(input)).Decode(&ch))
	assert.Equal(t, "Café", ch.Title)
}

func TestNewXMLDecoder_HTMLEntities(t *testing.T) {
	input := `<rss><channel><title>Rock &amp; Roll&nbsp;Weekly &mdash; Issue</title></channel></rss>`

	var ch testChannel
	require.NoError(t, NewXMLDecoder(strings.NewReader(input)).Decode(&ch))
	assert.Equal(t, "Rock & Roll\u00a0Weekly \u2014 Issue", ch.Title)
}

func TestNewXMLDecoder_UnknownCharset(t *testing.T) {
	input := `<?xml version="1.0" encoding="x-made-up"?><rss><channel><title>x</title></channel></rss>`

	var ch testChannel
	err := NewXMLDecoder(strings.NewReader(input)).Decode(&ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

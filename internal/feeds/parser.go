package feeds

import (
	"bytes"
	"encoding/xml"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/internal/fetcher"
)

const (
	nsAtom = "http://www.w3.org/2005/Atom"

	// maxFeedBytes bounds how much of a feed document is read.
	maxFeedBytes = 8 << 20
)

// Feed is a parsed syndication document.
type Feed struct {
	Title   string
	Entries []Entry
}

// Entry is one feed item with the fields the sampler needs.
type Entry struct {
	Title     string
	Link      string
	Published string
	Summary   string
	ImageURL  string
}

var summaryPolicy = bluemonday.StrictPolicy()

// Parse detects RSS 2.0, RSS 1.0 (RDF) or Atom from the root element and
// decodes the document. Entries without a title or link are dropped.
func Parse(r io.Reader) (*Feed, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFeedBytes))
	if err != nil {
		return nil, eris.Wrap(err, "feeds: read document")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("feeds: empty document")
	}

	switch detectFormat(data) {
	case "rss":
		return parseRSS(data)
	case "rdf":
		return parseRDF(data)
	case "atom":
		return parseAtom(data)
	default:
		return nil, eris.New("feeds: unknown format (expected <rss>, <rdf:RDF> or <feed>)")
	}
}

func detectFormat(data []byte) string {
	d := fetcher.NewXMLDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss":
				return "rss"
			case "rdf":
				return "rdf"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

func decode(data []byte, v any) error {
	return fetcher.NewXMLDecoder(bytes.NewReader(data)).Decode(v)
}

// --- shared media elements ---

type mediaContent struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Medium string `xml:"medium,attr"`
}

type mediaThumbnail struct {
	URL string `xml:"url,attr"`
}

type mediaGroup struct {
	Contents   []mediaContent   `xml:"http://search.yahoo.com/mrss/ content"`
	Thumbnails []mediaThumbnail `xml:"http://search.yahoo.com/mrss/ thumbnail"`
}

type enclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type typedLink struct {
	XMLName xml.Name
	Href    string `xml:"href,attr"`
	Rel     string `xml:"rel,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

// imageSources collects every image hint an item can carry.
type imageSources struct {
	Contents   []mediaContent   `xml:"http://search.yahoo.com/mrss/ content"`
	Thumbnails []mediaThumbnail `xml:"http://search.yahoo.com/mrss/ thumbnail"`
	Groups     []mediaGroup     `xml:"http://search.yahoo.com/mrss/ group"`
	Enclosures []enclosure      `xml:"enclosure"`
}

// pickImage applies the fixed precedence: media content, media thumbnail,
// image enclosure, then an image-typed link relation.
func pickImage(src imageSources, links []typedLink) string {
	contents := src.Contents
	thumbs := src.Thumbnails
	for _, g := range src.Groups {
		contents = append(contents, g.Contents...)
		thumbs = append(thumbs, g.Thumbnails...)
	}

	for _, mc := range contents {
		if mc.URL != "" && isImageMedia(mc) {
			return strings.TrimSpace(mc.URL)
		}
	}
	for _, th := range thumbs {
		if th.URL != "" {
			return strings.TrimSpace(th.URL)
		}
	}
	for _, enc := range src.Enclosures {
		if enc.URL != "" && isImageType(enc.Type) {
			return strings.TrimSpace(enc.URL)
		}
	}
	for _, l := range links {
		if l.Href != "" && isImageType(l.Type) {
			return strings.TrimSpace(l.Href)
		}
	}
	return ""
}

func isImageMedia(mc mediaContent) bool {
	if mc.Medium != "" {
		return strings.EqualFold(mc.Medium, "image")
	}
	return mc.Type == "" || isImageType(mc.Type)
}

func isImageType(t string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(t)), "image/")
}

// cleanSummary strips markup and collapses whitespace.
func cleanSummary(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(summaryPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// --- RSS 2.0 ---

type rssRoot struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	imageSources
	Title       string      `xml:"title"`
	Links       []typedLink `xml:"link"`
	Description string      `xml:"description"`
	Encoded     string      `xml:"encoded"`
	PubDate     string      `xml:"pubDate"`
	Date        string      `xml:"date"` // dc:date
}

func (item rssItem) entry() Entry {
	var link string
	for _, l := range item.Links {
		if l.XMLName.Space == nsAtom {
			continue
		}
		if t := strings.TrimSpace(l.Text); t != "" {
			link = t
			break
		}
	}
	// Some feeds only carry an atom:link alternate.
	if link == "" {
		for _, l := range item.Links {
			if l.Href != "" && (l.Rel == "" || l.Rel == "alternate") {
				link = strings.TrimSpace(l.Href)
				break
			}
		}
	}

	published := strings.TrimSpace(item.PubDate)
	if published == "" {
		published = strings.TrimSpace(item.Date)
	}

	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Encoded
	}

	return Entry{
		Title:     strings.TrimSpace(html.UnescapeString(item.Title)),
		Link:      link,
		Published: published,
		Summary:   cleanSummary(summary),
		ImageURL:  pickImage(item.imageSources, item.Links),
	}
}

func parseRSS(data []byte) (*Feed, error) {
	var root rssRoot
	if err := decode(data, &root); err != nil {
		return nil, eris.Wrap(err, "feeds: parse rss")
	}
	return buildFeed(root.Channel.Title, root.Channel.Items), nil
}

// --- RSS 1.0 (RDF) ---

type rdfRoot struct {
	Channel rssChannel `xml:"channel"`
	Items   []rssItem  `xml:"item"`
}

func parseRDF(data []byte) (*Feed, error) {
	var root rdfRoot
	if err := decode(data, &root); err != nil {
		return nil, eris.Wrap(err, "feeds: parse rdf")
	}
	return buildFeed(root.Channel.Title, root.Items), nil
}

func buildFeed(title string, items []rssItem) *Feed {
	f := &Feed{
		Title:   strings.TrimSpace(html.UnescapeString(title)),
		Entries: make([]Entry, 0, len(items)),
	}
	for _, item := range items {
		e := item.entry()
		if e.Title == "" || e.Link == "" {
			continue
		}
		f.Entries = append(f.Entries, e)
	}
	return f
}

// --- Atom 1.0 ---

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	imageSources
	Title     string      `xml:"title"`
	Links     []typedLink `xml:"link"`
	Summary   string      `xml:"summary"`
	Content   string      `xml:"http://www.w3.org/2005/Atom content"`
	Published string      `xml:"published"`
	Updated   string      `xml:"updated"`
}

func (e atomEntry) entry() Entry {
	var link string
	for _, l := range e.Links {
		if l.Href != "" && (l.Rel == "" || l.Rel == "alternate") {
			link = strings.TrimSpace(l.Href)
			break
		}
	}

	published := strings.TrimSpace(e.Published)
	if published == "" {
		published = strings.TrimSpace(e.Updated)
	}

	summary := e.Summary
	if strings.TrimSpace(summary) == "" {
		summary = e.Content
	}

	var related []typedLink
	for _, l := range e.Links {
		if l.Rel == "enclosure" {
			e.Enclosures = append(e.Enclosures, enclosure{URL: l.Href, Type: l.Type})
		} else {
			related = append(related, l)
		}
	}

	return Entry{
		Title:     strings.TrimSpace(html.UnescapeString(e.Title)),
		Link:      link,
		Published: published,
		Summary:   cleanSummary(summary),
		ImageURL:  pickImage(e.imageSources, related),
	}
}

func parseAtom(data []byte) (*Feed, error) {
	var root atomFeed
	if err := decode(data, &root); err != nil {
		return nil, eris.Wrap(err, "feeds: parse atom")
	}

	f := &Feed{
		Title:   strings.TrimSpace(html.UnescapeString(root.Title)),
		Entries: make([]Entry, 0, len(root.Entries)),
	}
	for _, ae := range root.Entries {
		e := ae.entry()
		if e.Title == "" || e.Link == "" {
			continue
		}
		f.Entries = append(f.Entries, e)
	}
	return f, nil
}

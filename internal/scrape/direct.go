package scrape

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/visita-intel/newsintel/internal/model"
)

// BrowserUserAgent is sent by the direct tier so article pages render their
// normal desktop markup.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const (
	defaultMinChars = 300
	defaultMaxChars = 8000
	maxPageBytes    = 4 << 20
)

var (
	contentClassRe = regexp.MustCompile(`content|post|article`)
	iconLikeRe     = regexp.MustCompile(`(?i)icon|logo|sprite|avatar|pixel|spacer|badge|\.svg(\?|$)`)
)

// DirectOptions configures the direct tier.
type DirectOptions struct {
	UserAgent string
	Timeout   time.Duration
	MinChars  int // quality gate; shorter pages fail the tier
	MaxChars  int // truncation budget for the extracted text
	Exclude   *PathMatcher
	Client    *http.Client
}

// Direct fetches the article page itself and extracts its body text.
type Direct struct {
	client    *http.Client
	userAgent string
	minChars  int
	maxChars  int
	exclude   *PathMatcher
}

// NewDirect creates the direct tier with defaults applied.
func NewDirect(opts DirectOptions) *Direct {
	if opts.UserAgent == "" {
		opts.UserAgent = BrowserUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MinChars <= 0 {
		opts.MinChars = defaultMinChars
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableCompression:  true,
			},
		}
	}
	return &Direct{
		client:    client,
		userAgent: opts.UserAgent,
		minChars:  opts.MinChars,
		maxChars:  opts.MaxChars,
		exclude:   opts.Exclude,
	}
}

func (d *Direct) Name() string { return "direct" }

// Supports skips URLs the path matcher excludes (media pages, documents).
func (d *Direct) Supports(u string) bool {
	return d.exclude == nil || !d.exclude.IsExcluded(u)
}

// Attempt fetches the page once. Soft blocks and non-2xx statuses fail the
// tier immediately. A page whose text is under the quality gate still
// reports any image it carried.
func (d *Direct) Attempt(ctx context.Context, t Target) (*Attempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "direct: create request")
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "direct: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "direct: decompress")
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, eris.Wrap(err, "direct: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, &BlockError{URL: t.URL, StatusCode: resp.StatusCode, Type: kind}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("direct: status %d", resp.StatusCode)
	}

	utf8Body, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, eris.Wrap(err, "direct: decode charset")
	}
	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, eris.Wrap(err, "direct: parse html")
	}

	base := resp.Request.URL
	image := metaImage(doc, base)
	if image == "" {
		image = jsonLDImage(doc, base)
	}

	doc.Find("script, style, noscript, template, svg, iframe, nav, footer").Remove()
	container := contentContainer(doc)
	if image == "" {
		image = firstContentImage(container, base)
	}

	text := visibleText(container)
	if n := utf8.RuneCountInString(text); n < d.minChars {
		return &Attempt{ImageURL: image, Method: model.MethodScraped},
			eris.Wrapf(ErrThinContent, "direct: %d chars", n)
	}

	return &Attempt{
		Text:     truncateRunes(text, d.maxChars),
		ImageURL: image,
		Method:   model.MethodScraped,
	}, nil
}

// contentContainer picks the primary content element: <article>, then
// <main>, then the first element whose class mentions content, post, or
// article, then the whole document.
func contentContainer(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	sel := doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return contentClassRe.MatchString(class)
	}).First()
	if sel.Length() > 0 {
		return sel
	}
	return doc.Selection
}

// visibleText joins every text node under sel with spaces and collapses
// whitespace, so adjacent block elements do not run together.
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return collapseWhitespace(b.String())
}

// metaImage reads the social preview image (OpenGraph, then Twitter card).
func metaImage(doc *goquery.Document, base *url.URL) string {
	selectors := []string{
		`meta[property="og:image"]`,
		`meta[name="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	}
	for _, s := range selectors {
		if v, ok := doc.Find(s).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return resolveURL(base, v)
		}
	}
	return ""
}

// jsonLDImage reads the image property of the page's structured data.
func jsonLDImage(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if img := imageFromLD(data); img != "" {
			found = resolveURL(base, img)
			return false
		}
		return true
	})
	return found
}

// imageFromLD walks JSON-LD values: objects with an image key, @graph
// arrays, and image values given as a string, list, or ImageObject.
func imageFromLD(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if img := imageFromLD(item); img != "" {
				return img
			}
		}
	case map[string]any:
		if img, ok := t["image"]; ok {
			if s := ldImageValue(img); s != "" {
				return s
			}
		}
		if graph, ok := t["@graph"]; ok {
			return imageFromLD(graph)
		}
	}
	return ""
}

func ldImageValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s := ldImageValue(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if u, ok := t["url"].(string); ok {
			return u
		}
		if u, ok := t["contentUrl"].(string); ok {
			return u
		}
	}
	return ""
}

// firstContentImage returns the first <img> in the container that does not
// look like an icon, logo, or tracking pixel.
func firstContentImage(sel *goquery.Selection, base *url.URL) string {
	var found string
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if src == "" || strings.HasPrefix(src, "data:") {
			src, _ = img.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") || iconLikeRe.MatchString(src) {
			return true
		}
		if w, ok := img.Attr("width"); ok && isTinyDimension(w) {
			return true
		}
		found = resolveURL(base, src)
		return false
	})
	return found
}

func isTinyDimension(v string) bool {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	switch v {
	case "0", "1", "2", "16", "24", "32":
		return true
	}
	return false
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// Package feeds samples recent article candidates from the niche feed catalog.
package feeds

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/visita-intel/newsintel/internal/model"
)

// SourceAll selects every feed of the resolved niches.
const SourceAll = "all"

// SourceCustom selects the caller-supplied feed URL.
const SourceCustom = "custom"

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// FeedSource is one named syndication document.
type FeedSource struct {
	Key string `yaml:"key"`
	URL string `yaml:"url"`
}

type nicheFeeds struct {
	Niche model.Niche  `yaml:"niche"`
	Feeds []FeedSource `yaml:"feeds"`
}

type catalogFile struct {
	Niches []nicheFeeds `yaml:"niches"`
}

// Catalog maps niches to their feeds, preserving file order.
type Catalog struct {
	niches []nicheFeeds
	index  map[model.Niche]int
}

// FeedRef is a resolved (feed URL, niche) pair to fetch.
type FeedRef struct {
	Key   string
	URL   string
	Niche model.Niche
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(eris.Wrap(err, "feeds: built-in catalog"))
	}
	return c
}

// LoadCatalog reads a catalog file from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feeds: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "feeds: parse catalog")
	}

	c := &Catalog{index: make(map[model.Niche]int, len(f.Niches))}
	for _, nf := range f.Niches {
		n, ok := model.ParseNiche(string(nf.Niche))
		if !ok {
			return nil, eris.Errorf("feeds: catalog names unknown niche %q", nf.Niche)
		}
		if _, dup := c.index[n]; dup {
			return nil, eris.Errorf("feeds: catalog lists niche %q twice", n)
		}
		seen := make(map[string]bool, len(nf.Feeds))
		feeds := make([]FeedSource, 0, len(nf.Feeds))
		for _, fs := range nf.Feeds {
			fs.Key = strings.TrimSpace(fs.Key)
			fs.URL = strings.TrimSpace(fs.URL)
			if fs.Key == "" || fs.URL == "" {
				return nil, eris.Errorf("feeds: niche %q has a feed without key or url", n)
			}
			if seen[fs.Key] {
				return nil, eris.Errorf("feeds: niche %q lists source %q twice", n, fs.Key)
			}
			seen[fs.Key] = true
			feeds = append(feeds, fs)
		}
		c.index[n] = len(c.niches)
		c.niches = append(c.niches, nicheFeeds{Niche: n, Feeds: feeds})
	}
	return c, nil
}

// Niches returns the niches that have feeds, in catalog order.
func (c *Catalog) Niches() []model.Niche {
	out := make([]model.Niche, len(c.niches))
	for i, nf := range c.niches {
		out[i] = nf.Niche
	}
	return out
}

// Feeds returns the feeds registered for niche.
func (c *Catalog) Feeds(niche model.Niche) []FeedSource {
	i, ok := c.index[niche]
	if !ok {
		return nil
	}
	return c.niches[i].Feeds
}

// Size returns the total number of feeds.
func (c *Catalog) Size() int {
	total := 0
	for _, nf := range c.niches {
		total += len(nf.Feeds)
	}
	return total
}

// Resolve expands a niche selector and source selector into the feeds to
// fetch. A custom source yields exactly one feed tagged with the requested
// niche (general for the wildcard). Unknown source keys resolve to nothing.
func (c *Catalog) Resolve(niche model.Niche, source, customURL string) []FeedRef {
	source = strings.TrimSpace(source)
	if source == "" {
		source = SourceAll
	}

	if source == SourceCustom {
		if customURL == "" {
			return nil
		}
		tag := niche
		if tag == model.NicheAll {
			tag = model.NicheGeneral
		}
		return []FeedRef{{Key: SourceCustom, URL: customURL, Niche: tag}}
	}

	targets := []model.Niche{niche}
	if niche == model.NicheAll {
		targets = c.Niches()
	}

	var refs []FeedRef
	for _, n := range targets {
		for _, fs := range c.Feeds(n) {
			if source == SourceAll || source == fs.Key {
				refs = append(refs, FeedRef{Key: fs.Key, URL: fs.URL, Niche: n})
			}
		}
	}
	return refs
}

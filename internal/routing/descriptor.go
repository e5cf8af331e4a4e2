package routing

import (
	"maps"
	"strings"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/store"
)

// nicheDataPlacement says where a destination keeps the analysis niche_data.
type nicheDataPlacement int

const (
	nicheDataNone nicheDataPlacement = iota
	nicheDataSnippetSources
	nicheDataEntries // data.niche_data
	nicheDataMetadata
)

// Descriptor is the field contract of one destination table. It turns the
// base payload into the row that table accepts.
type Descriptor struct {
	Target Target
	// ConflictColumn is the natural unique key used for upserts.
	ConflictColumn string
	// Drop lists base fields the table has no column for.
	Drop []string
	// Renames maps base field names to table column names.
	Renames map[string]string
	// NumericSentiment coerces the sentiment label to the -1..1 scale.
	NumericSentiment bool
	NicheData        nicheDataPlacement
	// NestImage also copies the image URL into data.image_url.
	NestImage bool
	// Category rewrites the category value when set.
	Category func(string) string
	// Extra adds table-specific columns taken from the analysis.
	Extra func(row store.Row, a model.AnalysisResult)
}

// Base payload field names.
const (
	fieldTitle       = "title"
	fieldURL         = "url"
	fieldPublishedAt = "published_at"
	fieldCategory    = "category"
	fieldSummary     = "summary"
	fieldSentiment   = "sentiment_label"
	fieldSource      = "source"
	fieldCreatedAt   = "created_at"
	fieldImageURL    = "image_url"
)

var nicheTableRenames = map[string]string{
	fieldPublishedAt: "published",
	fieldSummary:     "ai_summary",
	fieldSentiment:   "sentiment",
}

var bricsCategories = map[string]bool{
	"diplomacy": true, "summit": true, "economy": true, "trade": true, "energy": true,
	"defense": true, "sanctions": true, "technology": true, "health": true,
	"education": true, "infrastructure": true, "governance": true, "other": true,
}

// BRICSCategory maps a category onto the closed BRICS list, "other" when it
// does not fit.
func BRICSCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if bricsCategories[c] {
		return c
	}
	return "other"
}

// EntriesCategory relabels crime as Safety for the generic feed.
func EntriesCategory(c string) string {
	if strings.EqualFold(strings.TrimSpace(c), "crime") {
		return "Safety"
	}
	return c
}

var descriptors = map[Target]Descriptor{
	entriesTarget: {
		Target:         entriesTarget,
		ConflictColumn: fieldURL,
		Renames:        map[string]string{fieldPublishedAt: "published_date"},
		NicheData:      nicheDataEntries,
		NestImage:      true,
		Category:       EntriesCategory,
	},
	electionTarget: {
		Target:         electionTarget,
		ConflictColumn: "source_url",
		Drop:           []string{fieldCategory},
		Renames: map[string]string{
			fieldURL:       "source_url",
			fieldSentiment: "sentiment",
		},
	},
	sportTarget: {
		Target:         sportTarget,
		ConflictColumn: fieldURL,
		NicheData:      nicheDataSnippetSources,
	},
	bricsTarget: {
		Target:         bricsTarget,
		ConflictColumn: fieldURL,
		Renames:        nicheTableRenames,
		NicheData:      nicheDataMetadata,
		Category:       BRICSCategory,
		Extra: func(row store.Row, a model.AnalysisResult) {
			row["entities"] = nonNil(a.KeyEntities)
			row["location_text"] = a.Location
			if topic, ok := a.NicheData["topic"]; ok {
				row["topic"] = topic
			}
		},
	},
	{aiSchema, "web3"}: {
		Target:           Target{aiSchema, "web3"},
		ConflictColumn:   fieldURL,
		Renames:          nicheTableRenames,
		NumericSentiment: true,
		NicheData:        nicheDataSnippetSources,
	},
}

// DescriptorFor returns the contract for t. Dedicated niche tables without
// an explicit entry share the published/ai_summary/sentiment layout.
func DescriptorFor(t Target) Descriptor {
	if d, ok := descriptors[t]; ok {
		return d
	}
	return Descriptor{
		Target:         t,
		ConflictColumn: fieldURL,
		Renames:        nicheTableRenames,
		NicheData:      nicheDataSnippetSources,
	}
}

// Apply adapts a base payload to the destination. base is not modified.
func (d Descriptor) Apply(base store.Row, a model.AnalysisResult, imageURL string) store.Row {
	row := maps.Clone(base)

	if d.Category != nil {
		if c, ok := row[fieldCategory].(string); ok {
			row[fieldCategory] = d.Category(c)
		}
	}
	for _, f := range d.Drop {
		delete(row, f)
	}
	for from, to := range d.Renames {
		if v, ok := row[from]; ok {
			delete(row, from)
			row[to] = v
		}
	}
	if d.NumericSentiment {
		if label, ok := row["sentiment"].(string); ok {
			row["sentiment"] = NumericSentiment(label)
		}
	}
	if d.Extra != nil {
		d.Extra(row, a)
	}

	if len(a.NicheData) > 0 {
		switch d.NicheData {
		case nicheDataSnippetSources:
			row["snippet_sources"] = a.NicheData
		case nicheDataMetadata:
			row["metadata"] = a.NicheData
		case nicheDataEntries:
			nested(row)["niche_data"] = a.NicheData
		}
	}

	if imageURL != "" {
		row[fieldImageURL] = imageURL
		if d.NestImage {
			nested(row)[fieldImageURL] = imageURL
		}
	}
	return row
}

// nested returns the row's data object, creating it if needed.
func nested(row store.Row) map[string]any {
	if m, ok := row["data"].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	row["data"] = m
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

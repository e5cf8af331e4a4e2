package routing

import (
	"strings"

	"github.com/visita-intel/newsintel/internal/model"
)

// Target is a (schema, table) pair in the destination store.
type Target struct {
	Schema string
	Table  string
}

func (t Target) String() string {
	return t.Schema + "." + t.Table
}

const aiSchema = "ai_intelligence"

var (
	entriesTarget   = Target{aiSchema, "entries"}
	electionTarget  = Target{"gov_intelligence", "election_news"}
	sportTarget     = Target{"sports_intelligence", "news"}
	bricsTarget     = Target{aiSchema, "brics"}
	nuclearTarget   = Target{aiSchema, "nuclear_energy"}
	feedItemsTarget = Target{aiSchema, "feed_items"}

	incidentsTarget  = Target{"crime_intelligence", "incidents"}
	wantedTarget     = Target{"crime_intelligence", "wanted_persons"}
	missingTarget    = Target{"crime_intelligence", "missing_persons"}
	syndicatesTarget = Target{"crime_intelligence", "syndicates"}
	identitiesTarget = Target{"people_intelligence", "master_identities"}
	orgsTarget       = Target{"business_intelligence", "organizations"}
)

// nicheTargets is the static niche lookup. Niches not listed share the
// generic entries table.
var nicheTargets = map[model.Niche]Target{
	model.NichePolitics:       electionTarget,
	model.NicheSport:          sportTarget,
	model.NicheBRICS:          bricsTarget,
	model.NicheNuclear:        nuclearTarget,
	model.NicheEnergy:         {aiSchema, "energy"},
	model.NicheMotoring:       {aiSchema, "motoring"},
	model.NicheGaming:         {aiSchema, "gaming"},
	model.NicheCrypto:         {aiSchema, "crypto"},
	model.NicheTech:           {aiSchema, "tech"},
	model.NicheEducation:      {aiSchema, "education"},
	model.NicheFoodTech:       {aiSchema, "foodtech"},
	model.NicheHealth:         {aiSchema, "health"},
	model.NicheLuxury:         {aiSchema, "luxury"},
	model.NicheRealEstate:     {aiSchema, "realestate"},
	model.NicheRetail:         {aiSchema, "retail"},
	model.NicheSocial:         {aiSchema, "social"},
	model.NicheVC:             {aiSchema, "vc"},
	model.NicheSemiconductors: {aiSchema, "semiconductors"},
	model.NicheWeb3:           {aiSchema, "web3"},
}

// override redirects a resolved niche based on the analysis content.
type override struct {
	name    string
	applies func(n model.Niche, a model.AnalysisResult) bool
	target  Target
}

// overrides run in order after the base lookup; the first match wins.
var overrides = []override{
	{
		name: "nuclear energy",
		applies: func(n model.Niche, a model.AnalysisResult) bool {
			return n == model.NicheEnergy && strings.Contains(strings.ToLower(string(a.EnergyType)), "nuclear")
		},
		target: nuclearTarget,
	},
	{
		name:    "crime entries",
		applies: func(n model.Niche, _ model.AnalysisResult) bool { return n == model.NicheCrime },
		target:  entriesTarget,
	},
	{
		name:    "business entries",
		applies: func(n model.Niche, _ model.AnalysisResult) bool { return n == model.NicheBusiness },
		target:  entriesTarget,
	},
}

// RoutingNiche picks the niche that decides the destination: the model's
// re-detected niche when it is in the vocabulary, else the article's niche,
// else general.
func RoutingNiche(a model.AnalysisResult, article model.ArticleCandidate) model.Niche {
	if n, ok := model.ParseNiche(a.DetectedNiche); ok {
		return n
	}
	if n, ok := model.ParseNiche(string(article.Niche)); ok {
		return n
	}
	return model.NicheGeneral
}

// baseTarget is the static lookup without overrides.
func baseTarget(n model.Niche) Target {
	if t, ok := nicheTargets[n]; ok {
		return t
	}
	return entriesTarget
}

// Resolve returns the destination for an analysed article.
func Resolve(a model.AnalysisResult, article model.ArticleCandidate) Target {
	n := RoutingNiche(a, article)
	for _, o := range overrides {
		if o.applies(n, a) {
			return o.target
		}
	}
	return baseTarget(n)
}

package model

import "strings"

// Niche is a closed-vocabulary topic tag that drives feed selection, prompt
// specialisation, and destination routing.
type Niche string

const (
	NicheGeneral        Niche = "general"
	NicheGaming         Niche = "gaming"
	NicheCrypto         Niche = "crypto"
	NicheTech           Niche = "tech"
	NicheNuclear        Niche = "nuclear"
	NicheEducation      Niche = "education"
	NicheFoodTech       Niche = "foodtech"
	NicheHealth         Niche = "health"
	NicheLuxury         Niche = "luxury"
	NicheRealEstate     Niche = "realestate"
	NicheRetail         Niche = "retail"
	NicheSocial         Niche = "social"
	NicheVC             Niche = "vc"
	NicheEnergy         Niche = "energy"
	NicheMotoring       Niche = "motoring"
	NicheBRICS          Niche = "brics"
	NicheSemiconductors Niche = "semiconductors"
	NicheWeb3           Niche = "web3"
	NichePolitics       Niche = "politics"
	NicheSport          Niche = "sport"
	NicheCrime          Niche = "crime"
	NicheBusiness       Niche = "business"
)

// NicheAll is the wildcard selector. It is never assigned to an article.
const NicheAll Niche = "all"

var knownNiches = map[Niche]bool{
	NicheGeneral: true, NicheGaming: true, NicheCrypto: true, NicheTech: true,
	NicheNuclear: true, NicheEducation: true, NicheFoodTech: true, NicheHealth: true,
	NicheLuxury: true, NicheRealEstate: true, NicheRetail: true, NicheSocial: true,
	NicheVC: true, NicheEnergy: true, NicheMotoring: true, NicheBRICS: true,
	NicheSemiconductors: true, NicheWeb3: true, NichePolitics: true, NicheSport: true,
	NicheCrime: true, NicheBusiness: true,
}

// AllNiches returns every member of the niche vocabulary in a stable order.
func AllNiches() []Niche {
	return []Niche{
		NicheGeneral, NicheGaming, NicheCrypto, NicheTech, NicheNuclear,
		NicheEducation, NicheFoodTech, NicheHealth, NicheLuxury, NicheRealEstate,
		NicheRetail, NicheSocial, NicheVC, NicheEnergy, NicheMotoring, NicheBRICS,
		NicheSemiconductors, NicheWeb3, NichePolitics, NicheSport, NicheCrime,
		NicheBusiness,
	}
}

// ParseNiche normalises s and reports whether it names a known niche.
// Near-misses ("Crypto ", "CRYPTO") normalise; misspellings do not.
func ParseNiche(s string) (Niche, bool) {
	n := Niche(strings.ToLower(strings.TrimSpace(s)))
	if knownNiches[n] {
		return n, true
	}
	return "", false
}

// Valid reports whether n belongs to the vocabulary.
func (n Niche) Valid() bool {
	return knownNiches[n]
}

func (n Niche) String() string { return string(n) }

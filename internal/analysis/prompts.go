package analysis

import (
	"strings"

	"github.com/visita-intel/newsintel/internal/model"
)

const systemPreamble = "You are a JSON-only output machine. You are also an expert news intelligence analyst. " +
	"Analyze the article text (either the full article or search snippets about it) and return exactly one JSON object. " +
	"Do not wrap it in markdown and do not add commentary."

var sharedInstructions = `Always include these keys:
- "sentiment": one label. Use the niche's list when one is given, otherwise one of [Positive, Neutral, Negative, High Hype, Informational].
- "category": one short category label. Use the niche's list when one is given.
- "key_entities": list of the top 3 entities (people, companies, products, places).
- "summary": a dense, professional, 2-sentence summary of the core news.
- "location": the main place the story concerns, or "".
- "city": the city, or "".
- "country": the country, or "".
- "is_south_africa": true when the story concerns South Africa.
- "detected_niche": the best topic for this story, chosen ONLY from [` + nicheList + `]. Use "" if unsure.
- "incidents": list of {"type", "description", "severity" (Low|Medium|High|Critical), "location", "date" (YYYY-MM-DD)} for crimes, accidents or safety events. [] if none.
- "people": list of {"name", "role", "status", "details"}. Set status to "wanted" or "missing" only when the article says so. [] if none.
- "organizations": list of {"name", "type", "details"}. Use type "Syndicate" or "Gang" for criminal groups. [] if none.
- "niche_data": an object with any other facts specific to the niche, or {}.
If the text is encrypted, empty, or cannot be analyzed, reply with {"summary": "Unable to analyze the content."}.`

var nicheList = func() string {
	names := make([]string, 0, len(model.AllNiches()))
	for _, n := range model.AllNiches() {
		names = append(names, n.String())
	}
	return strings.Join(names, ", ")
}()

// nicheInstructions holds the extraction checklist for each niche.
var nicheInstructions = map[model.Niche]string{
	model.NicheGeneral: `Niche: general news.
Categories: [Politics, Business, Technology, Science, Health, Sport, Entertainment, World, Local, Other].`,

	model.NicheGaming: `Niche: gaming and esports.
Sentiment: one of [High Hype, Moderate Interest, Informational, Negative].
Categories: [Esports Results, Game Review, Industry News, New Release, Patch Notes, Rumor].
Also extract "game_studio", "game_genre", "platform" (PC, PS5, Xbox, Switch, Mobile, VR) and "release_status" (Announced, Early Access, Released, Delayed, Cancelled).`,

	model.NicheCrypto: `Niche: cryptocurrency markets.
Sentiment: one of [Bullish, Bearish, Neutral].
Categories: [Market Move, Regulation, Hack, Listing, Protocol Upgrade, Adoption, Other].
Also extract "token_symbol", "market_trend" (Up, Down, Sideways) and "regulatory_impact" (None, Low, Medium, High).`,

	model.NicheWeb3: `Niche: web3 and decentralised applications.
Sentiment: one of [Very Bullish, Bullish, Neutral, Bearish, Very Bearish].
Categories: [DeFi, NFT, DAO, Infrastructure, Regulation, Security, Other].
Also extract "token_symbol", "market_trend" and "regulatory_impact".`,

	model.NicheTech: `Niche: technology industry.
Categories: [AI, Cloud, Cybersecurity, Hardware, Software, Startups, Policy, Other].
Put product names and versions in niche_data.products.`,

	model.NicheNuclear: `Niche: nuclear energy.
Categories: [New Build, Operations, Regulation, Fuel Cycle, Decommissioning, Policy, Other].
Also extract "energy_type" (always "Nuclear") and "capacity" (with units, e.g. "1.1 GW").
Put reactor names and designs in niche_data.reactors.`,

	model.NicheEducation: `Niche: education.
Categories: [Policy, Higher Education, Schools, EdTech, Funding, Results, Other].
Put institutions in niche_data.institutions.`,

	model.NicheFoodTech: `Niche: food technology and agritech.
Categories: [Alternative Protein, Agritech, Supply Chain, Regulation, Funding, Retail, Other].
Put products in niche_data.products.`,

	model.NicheHealth: `Niche: health and medicine.
Categories: [Research, Public Health, Pharma, Policy, Outbreak, Healthcare Delivery, Other].
Put conditions and treatments in niche_data.conditions and niche_data.treatments.`,

	model.NicheLuxury: `Niche: luxury goods and lifestyle.
Categories: [Fashion, Watches, Automotive, Hospitality, Art, Earnings, Other].
Put brands in niche_data.brands.`,

	model.NicheRealEstate: `Niche: real estate.
Categories: [Residential, Commercial, Development, Market Report, Policy, Other].
Also extract "property_type", "listing_price" (with currency), "sqft" and "market_status" (Hot, Cooling, Stable, Declining).`,

	model.NicheRetail: `Niche: retail.
Categories: [Earnings, E-commerce, Store Openings, Closures, Supply Chain, Consumer Trends, Other].
Put retailers in niche_data.retailers.`,

	model.NicheSocial: `Niche: social media and creator economy.
Categories: [Platform Update, Viral Trend, Policy, Creator Economy, Controversy, Other].
Put platforms in niche_data.platforms.`,

	model.NicheVC: `Niche: venture capital and startup funding.
Categories: [Funding Round, Acquisition, IPO, Fund Launch, Layoffs, Other].
Also extract "company_name", "round_type" (Pre-Seed, Seed, Series A, Series B, Series C+, Debt, Other), "funding_amount" (with currency) and "investor_list" (list of investor names).`,

	model.NicheEnergy: `Niche: energy.
Categories: [Renewables, Oil and Gas, Grid, Policy, Prices, Storage, Other].
Also extract "energy_type" (Solar, Wind, Hydro, Nuclear, Coal, Gas, Oil, Hydrogen, Storage, Other) and "capacity" (with units).`,

	model.NicheMotoring: `Niche: motoring and automotive.
Categories: [Launch, Review, Recall, Motorsport, Industry, EV, Other].
Also extract "vehicle_make" and "vehicle_model".`,

	model.NicheBRICS: `Niche: BRICS bloc affairs.
Categories: one of [diplomacy, summit, economy, trade, energy, defense, sanctions, technology, health, education, infrastructure, governance, other].
Put the main topic in niche_data.topic and member states involved in niche_data.countries.`,

	model.NicheSemiconductors: `Niche: semiconductors.
Categories: [Fabrication, Design, Supply Chain, Export Controls, Earnings, Other].
Put process nodes and chip names in niche_data.nodes and niche_data.chips.`,

	model.NichePolitics: `Niche: politics and elections.
Categories: [Election, Legislation, Campaign, Scandal, Policy, Other].
Put parties and candidates in niche_data.parties and niche_data.candidates.`,

	model.NicheSport: `Niche: sport.
Categories: [Match Report, Transfer, Injury, Tournament, Controversy, Other].
Put teams, competitions and scores in niche_data.teams, niche_data.competition and niche_data.score.`,

	model.NicheCrime: `Niche: crime and public safety.
Categories: [Crime, Safety, Court, Policing, Corruption, Other].
Report every incident in "incidents". Flag wanted or missing persons in "people". Name gangs and syndicates in "organizations".`,

	model.NicheBusiness: `Niche: business and economy.
Categories: [Earnings, Markets, Mergers, Policy, Labour, Other].
Put tickers and figures in niche_data.tickers and niche_data.figures.`,
}

// BuildSystemPrompt assembles the instruction blocks for niche. Unknown
// niches use the general checklist.
func BuildSystemPrompt(niche model.Niche) string {
	block, ok := nicheInstructions[niche]
	if !ok {
		block = nicheInstructions[model.NicheGeneral]
	}
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")
	b.WriteString(block)
	b.WriteString("\n\n")
	b.WriteString(sharedInstructions)
	return b.String()
}

// BuildUserPrompt wraps the article text.
func BuildUserPrompt(text string) string {
	return "CONTEXT:\n" + text
}

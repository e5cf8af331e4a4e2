package analysis

import "github.com/visita-intel/newsintel/internal/model"

// DryRunResult returns a canned analysis without any network access.
func DryRunResult(niche model.Niche) model.AnalysisResult {
	r := model.AnalysisResult{
		Sentiment:   "Informational",
		Category:    "Test",
		KeyEntities: []string{"Dry Run"},
		Summary:     "Dry run analysis for a " + niche.String() + " article.",
		NicheData:   map[string]any{"dry_run": true},
	}

	switch niche {
	case model.NicheGaming, model.NicheGeneral, model.NicheAll, "":
		r.Sentiment = "High Hype"
		r.Category = "Game Announcement"
		r.KeyEntities = []string{"Half-Life 3", "Valve"}
		r.Summary = "Valve has officially announced Half-Life 3 VR."
		r.GameStudio = "Valve"
		r.Platform = "VR"
		r.ReleaseStatus = "Announced"
	case model.NicheCrypto, model.NicheWeb3:
		r.Sentiment = "Bullish"
		r.TokenSymbol = "BTC"
		r.MarketTrend = "Up"
	case model.NicheEnergy:
		r.EnergyType = "Solar"
		r.Capacity = "100 MW"
	case model.NicheNuclear:
		r.EnergyType = "Nuclear"
		r.Capacity = "1.1 GW"
	case model.NicheMotoring:
		r.VehicleMake = "Toyota"
		r.VehicleModel = "Hilux"
	case model.NicheRealEstate:
		r.PropertyType = "Residential"
		r.MarketStatus = "Stable"
	case model.NicheVC:
		r.CompanyName = "Example Labs"
		r.RoundType = "Seed"
		r.FundingAmount = "$2M"
		r.InvestorList = []string{"Example Ventures"}
	case model.NicheBRICS:
		r.Category = "summit"
		r.NicheData["topic"] = "summit"
	}
	return r
}

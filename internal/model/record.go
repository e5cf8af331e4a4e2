package model

import "unicode/utf8"

// rawContextPreview is the number of characters of context kept on a record.
const rawContextPreview = 200

// DatasetRecord is the stable, niche-agnostic record emitted to the dataset
// sink for every analysed article. Niche fields are always present and null
// when they do not apply.
type DatasetRecord struct {
	RunID            string            `json:"run_id"`
	Niche            Niche             `json:"niche"`
	SourceFeed       string            `json:"source_feed"`
	Title            string            `json:"title"`
	URL              string            `json:"url"`
	Published        *string           `json:"published"`
	ImageURL         *string           `json:"image_url"`
	Method           AcquisitionMethod `json:"method"`
	Sentiment        string            `json:"sentiment"`
	Category         string            `json:"category"`
	KeyEntities      []string          `json:"key_entities"`
	AISummary        string            `json:"ai_summary"`
	Location         *string           `json:"location"`
	City             *string           `json:"city"`
	Country          *string           `json:"country"`
	IsSouthAfrica    bool              `json:"is_south_africa"`
	RawContextSource *string           `json:"raw_context_source"`

	GameStudio       *string  `json:"game_studio"`
	GameGenre        *string  `json:"game_genre"`
	Platform         *string  `json:"platform"`
	ReleaseStatus    *string  `json:"release_status"`
	PropertyType     *string  `json:"property_type"`
	ListingPrice     *string  `json:"listing_price"`
	Sqft             *string  `json:"sqft"`
	MarketStatus     *string  `json:"market_status"`
	CompanyName      *string  `json:"company_name"`
	RoundType        *string  `json:"round_type"`
	FundingAmount    *string  `json:"funding_amount"`
	InvestorList     []string `json:"investor_list"`
	TokenSymbol      *string  `json:"token_symbol"`
	MarketTrend      *string  `json:"market_trend"`
	RegulatoryImpact *string  `json:"regulatory_impact"`
	EnergyType       *string  `json:"energy_type"`
	Capacity         *string  `json:"capacity"`
	VehicleMake      *string  `json:"vehicle_make"`
	VehicleModel     *string  `json:"vehicle_model"`
}

// NewDatasetRecord flattens an article, its acquired context, and its
// analysis into the superset record.
func NewDatasetRecord(runID string, niche Niche, a ArticleCandidate, c AcquiredContext, r AnalysisResult) DatasetRecord {
	entities := r.KeyEntities
	if entities == nil {
		entities = []string{}
	}
	return DatasetRecord{
		RunID:            runID,
		Niche:            niche,
		SourceFeed:       a.Source,
		Title:            a.Title,
		URL:              a.URL,
		Published:        strPtr(a.PublishedString()),
		ImageURL:         strPtr(c.ImageURL),
		Method:           c.Method,
		Sentiment:        r.Sentiment,
		Category:         r.Category,
		KeyEntities:      entities,
		AISummary:        r.Summary,
		Location:         strPtr(r.Location),
		City:             strPtr(r.City),
		Country:          strPtr(r.Country),
		IsSouthAfrica:    bool(r.IsSouthAfrica),
		RawContextSource: previewContext(c.Text),

		GameStudio:       r.GameStudio.Ptr(),
		GameGenre:        r.GameGenre.Ptr(),
		Platform:         r.Platform.Ptr(),
		ReleaseStatus:    r.ReleaseStatus.Ptr(),
		PropertyType:     r.PropertyType.Ptr(),
		ListingPrice:     r.ListingPrice.Ptr(),
		Sqft:             r.Sqft.Ptr(),
		MarketStatus:     r.MarketStatus.Ptr(),
		CompanyName:      r.CompanyName.Ptr(),
		RoundType:        r.RoundType.Ptr(),
		FundingAmount:    r.FundingAmount.Ptr(),
		InvestorList:     r.InvestorList,
		TokenSymbol:      r.TokenSymbol.Ptr(),
		MarketTrend:      r.MarketTrend.Ptr(),
		RegulatoryImpact: r.RegulatoryImpact.Ptr(),
		EnergyType:       r.EnergyType.Ptr(),
		Capacity:         r.Capacity.Ptr(),
		VehicleMake:      r.VehicleMake.Ptr(),
		VehicleModel:     r.VehicleModel.Ptr(),
	}
}

func previewContext(text string) *string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > rawContextPreview {
		text = string([]rune(text)[:rawContextPreview])
	}
	s := text + "..."
	return &s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

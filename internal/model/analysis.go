package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Sentinel values carried in Sentiment and Category when analysis did not
// produce content.
const (
	SentinelError   = "Error"
	SentinelSkipped = "Skipped"
)

// Incident is a crime or safety event reported in an article.
type Incident struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Severity    FlexString `json:"severity,omitempty"`
	Location    string     `json:"location,omitempty"`
	Date        FlexString `json:"date,omitempty"`
}

// Person is an individual named in an article.
type Person struct {
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Status  string `json:"status,omitempty"` // e.g. "wanted", "missing"
	Details string `json:"details,omitempty"`
}

// Organization is a company, agency, or group named in an article.
type Organization struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"` // "Syndicate" and "Gang" route to crime intelligence
	Details string `json:"details,omitempty"`
}

// AnalysisResult is the enrichment record produced once per article.
// Either Sentiment/Category carry real values, or both carry the same sentinel.
type AnalysisResult struct {
	Sentiment     string   `json:"sentiment"`
	Category      string   `json:"category"`
	KeyEntities   FlexList `json:"key_entities"`
	Summary       string   `json:"summary"`
	Location      string   `json:"location,omitempty"`
	City          string   `json:"city,omitempty"`
	Country       string   `json:"country,omitempty"`
	IsSouthAfrica FlexBool `json:"is_south_africa"`
	DetectedNiche string   `json:"detected_niche,omitempty"`

	Incidents     []Incident     `json:"incidents,omitempty"`
	People        []Person       `json:"people,omitempty"`
	Organizations []Organization `json:"organizations,omitempty"`

	// Gaming
	GameStudio    FlexString `json:"game_studio,omitempty"`
	GameGenre     FlexString `json:"game_genre,omitempty"`
	Platform      FlexString `json:"platform,omitempty"`
	ReleaseStatus FlexString `json:"release_status,omitempty"`
	// Real estate
	PropertyType FlexString `json:"property_type,omitempty"`
	ListingPrice FlexString `json:"listing_price,omitempty"`
	Sqft         FlexString `json:"sqft,omitempty"`
	MarketStatus FlexString `json:"market_status,omitempty"`
	// VC
	CompanyName   FlexString `json:"company_name,omitempty"`
	RoundType     FlexString `json:"round_type,omitempty"`
	FundingAmount FlexString `json:"funding_amount,omitempty"`
	InvestorList  FlexList   `json:"investor_list,omitempty"`
	// Crypto
	TokenSymbol      FlexString `json:"token_symbol,omitempty"`
	MarketTrend      FlexString `json:"market_trend,omitempty"`
	RegulatoryImpact FlexString `json:"regulatory_impact,omitempty"`
	// Energy
	EnergyType FlexString `json:"energy_type,omitempty"`
	Capacity   FlexString `json:"capacity,omitempty"`
	// Motoring
	VehicleMake  FlexString `json:"vehicle_make,omitempty"`
	VehicleModel FlexString `json:"vehicle_model,omitempty"`

	NicheData map[string]any `json:"niche_data,omitempty"`
}

// ErrorResult builds the failure sentinel with reason as the summary.
func ErrorResult(reason string) AnalysisResult {
	return AnalysisResult{
		Sentiment:   SentinelError,
		Category:    SentinelError,
		KeyEntities: []string{},
		Summary:     reason,
	}
}

// SkippedResult builds the refusal sentinel with reason as the summary.
func SkippedResult(reason string) AnalysisResult {
	return AnalysisResult{
		Sentiment:   SentinelSkipped,
		Category:    SentinelSkipped,
		KeyEntities: []string{},
		Summary:     reason,
	}
}

// IsError reports whether r is the failure sentinel.
func (r AnalysisResult) IsError() bool { return r.Sentiment == SentinelError }

// IsSkipped reports whether r is the refusal sentinel.
func (r AnalysisResult) IsSkipped() bool { return r.Sentiment == SentinelSkipped }

// IsSentinel reports whether r carries no real content.
func (r AnalysisResult) IsSentinel() bool { return r.IsError() || r.IsSkipped() }

// FlexString accepts a JSON string, number, or boolean. Models are
// inconsistent about quoting prices and counts.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	// Numbers, booleans, and nested values keep their literal JSON text.
	*f = FlexString(data)
	return nil
}

// Ptr returns nil for the empty value, so superset records serialise nulls.
func (f FlexString) Ptr() *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}

// FlexBool accepts true/false as JSON booleans or strings.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		*b = FlexBool(strings.EqualFold(s, "yes"))
		return nil
	}
	*b = FlexBool(v)
	return nil
}

// FlexList accepts a JSON array or a single comma-separated string.
// Array elements may be strings or numbers; blanks are dropped.
type FlexList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var items []FlexString
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, part := range strings.Split(s, ",") {
			items = append(items, FlexString(strings.TrimSpace(part)))
		}
	default:
		items = []FlexString{FlexString(data)}
	}

	out := make(FlexList, 0, len(items))
	for _, it := range items {
		if it != "" {
			out = append(out, string(it))
		}
	}
	*l = out
	return nil
}

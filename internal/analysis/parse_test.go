package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visita-intel/newsintel/internal/model"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose after fence", "```json\n{\"a\":1}\n```\nThis summary reflects the article.", `{"a":1}`},
		{"second fence ignored", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`},
		{"leading prose", `Here is the analysis: {"a":{"b":"}"}} Hope this helps {"c":3}`, `{"a":{"b":"}"}}`},
		{"escaped quote in string", `Result: {"a":"say \"hi\" }"} end`, `{"a":"say \"hi\" }"}`},
		{"no object", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestParseResponse_Valid(t *testing.T) {
	raw := "```json\n" + `{
		"sentiment": "High Hype",
		"category": "New Release",
		"key_entities": ["Valve", "Half-Life 3"],
		"summary": "Valve ships a sequel.",
		"is_south_africa": "false",
		"detected_niche": " Gaming ",
		"listing_price": 1250000,
		"people": [{"name": "Gabe Newell", "role": "CEO"}],
		"organizations": [{"name": "Valve", "type": "Company"}],
		"niche_data": {"engine": "Source 2"}
	}` + "\n```"

	got := ParseResponse(raw)

	assert.Equal(t, "High Hype", got.Sentiment)
	assert.Equal(t, "New Release", got.Category)
	assert.Equal(t, model.FlexList{"Valve", "Half-Life 3"}, got.KeyEntities)
	assert.False(t, bool(got.IsSouthAfrica))
	assert.Equal(t, "gaming", got.DetectedNiche)
	assert.Equal(t, model.FlexString("1250000"), got.ListingPrice)
	require.Len(t, got.People, 1)
	assert.Equal(t, "CEO", got.People[0].Role)
	assert.Equal(t, "Source 2", got.NicheData["engine"])
}

func TestParseResponse_DiscardsUnknownNiche(t *testing.T) {
	for _, detected := range []string{"cryptos", "finance", "gamming"} {
		got := ParseResponse(`{"sentiment":"Neutral","category":"x","detected_niche":"` + detected + `"}`)
		assert.Empty(t, got.DetectedNiche, detected)
	}
}

func TestParseResponse_Unparseable(t *testing.T) {
	got := ParseResponse("The article discusses several things {not json")
	assert.True(t, got.IsError())
	assert.Equal(t, model.SentinelError, got.Category)
	assert.Contains(t, got.Summary, "not valid JSON")
	assert.NotNil(t, got.KeyEntities)
}

func TestParseResponse_Refusals(t *testing.T) {
	for _, raw := range []string{
		"I'm sorry, but I can't help with that. The content is encrypted.",
		`{"summary": "Unable to analyze the content."}`,
		`{"sentiment": "", "category": "", "summary": "The text appears to be encrypted."}`,
		`{"sentiment": "Neutral", "category": "Other", "key_entities": [], "summary": "Cannot analyze: the page is encrypted."}`,
	} {
		got := ParseResponse(raw)
		assert.True(t, got.IsSkipped(), raw)
		assert.Equal(t, model.SentinelSkipped, got.Category)
	}
}

func TestParseResponse_MissingCoreFields(t *testing.T) {
	got := ParseResponse(`{"summary": "Something happened."}`)
	assert.True(t, got.IsError())

	got = ParseResponse(`{"sentiment": "Negative", "summary": "Something happened."}`)
	assert.Equal(t, "Negative", got.Sentiment)
	assert.Equal(t, "Unknown", got.Category)
	assert.Equal(t, model.FlexList{}, got.KeyEntities)
}

func TestParseResponse_LooselyTypedFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, got model.AnalysisResult)
	}{
		{
			name: "investor list as string",
			raw:  `{"sentiment":"Positive","category":"Funding","key_entities":["Acme"],"investor_list":"Sequoia, a16z ,"}`,
			check: func(t *testing.T, got model.AnalysisResult) {
				assert.Equal(t, model.FlexList{"Sequoia", "a16z"}, got.InvestorList)
			},
		},
		{
			name: "numeric incident severity and date",
			raw:  `{"sentiment":"Negative","category":"Crime","key_entities":[],"incidents":[{"type":"Robbery","description":"Heist","severity":3,"date":20250614}]}`,
			check: func(t *testing.T, got model.AnalysisResult) {
				require.Len(t, got.Incidents, 1)
				assert.Equal(t, model.FlexString("3"), got.Incidents[0].Severity)
				assert.Equal(t, model.FlexString("20250614"), got.Incidents[0].Date)
			},
		},
		{
			name: "key entities as bare string",
			raw:  `{"sentiment":"Neutral","category":"Policy","key_entities":"Eskom, NERSA"}`,
			check: func(t *testing.T, got model.AnalysisResult) {
				assert.Equal(t, model.FlexList{"Eskom", "NERSA"}, got.KeyEntities)
			},
		},
		{
			name: "mixed entity list",
			raw:  `{"sentiment":"Neutral","category":"Markets","key_entities":["BTC", 2024, "", null]}`,
			check: func(t *testing.T, got model.AnalysisResult) {
				assert.Equal(t, model.FlexList{"BTC", "2024"}, got.KeyEntities)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.raw)
			require.False(t, got.IsSentinel(), got.Summary)
			tt.check(t, got)
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	gaming := BuildSystemPrompt(model.NicheGaming)
	assert.Contains(t, gaming, "JSON-only")
	assert.Contains(t, gaming, "game_studio")
	assert.Contains(t, gaming, "detected_niche")
	assert.Contains(t, gaming, "semiconductors")

	assert.Equal(t, BuildSystemPrompt(model.NicheGeneral), BuildSystemPrompt("unknown"))
	for _, n := range model.AllNiches() {
		_, ok := nicheInstructions[n]
		assert.True(t, ok, "missing instructions for %s", n)
	}
}

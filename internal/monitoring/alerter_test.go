package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visita-intel/newsintel/internal/config"
	"github.com/visita-intel/newsintel/internal/model"
)

func hypeRecord() model.DatasetRecord {
	img := "https://img.test/a.jpg"
	return model.DatasetRecord{
		RunID:       "run-1",
		Niche:       model.NicheCrypto,
		SourceFeed:  "CoinDesk",
		Title:       "Token rallies 40%",
		URL:         "https://news.test/token",
		ImageURL:    &img,
		Sentiment:   "High Hype",
		Category:    "Market",
		KeyEntities: []string{"Token", "Exchange"},
		AISummary:   "A token rallied.",
	}
}

func TestAlerter_NotifyHype(t *testing.T) {
	var got webhookMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a := NewAlerter(ts.URL, config.MonitoringConfig{})
	a.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	sent, err := a.NotifyHype(context.Background(), hypeRecord())
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "Token rallies 40%", e.Title)
	assert.Equal(t, "https://news.test/token", e.URL)
	assert.Equal(t, "A token rallied.", e.Description)
	assert.Equal(t, "2025-06-15T12:00:00Z", e.Timestamp)
	require.NotNil(t, e.Thumbnail)
	assert.Equal(t, "https://img.test/a.jpg", e.Thumbnail.URL)
	assert.Contains(t, got.Content, "High Hype")

	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Sentiment", "Category", "Niche", "Source", "Entities"}, names)
}

func TestAlerter_NotifyHype_NotQualifying(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	rec := hypeRecord()
	rec.Sentiment = "Positive"
	sent, err := NewAlerter(ts.URL, config.MonitoringConfig{}).NotifyHype(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = NewAlerter("", config.MonitoringConfig{}).NotifyHype(context.Background(), hypeRecord())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, int32(0), calls.Load())
}

func TestAlerter_NotifyHype_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	sent, err := NewAlerter(ts.URL, config.MonitoringConfig{}).NotifyHype(context.Background(), hypeRecord())
	require.Error(t, err)
	assert.False(t, sent)
	assert.Contains(t, err.Error(), "status 429")
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter("", config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		CostThresholdUSD:     5.0,
	})

	alerts := a.Evaluate(RunSnapshot{RunID: "r", Total: 20, Routed: 19, Failed: 1, CostUSD: 0.40})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_HighFailureRate(t *testing.T) {
	a := NewAlerter("", config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		CostThresholdUSD:     5.0,
	})

	alerts := a.Evaluate(RunSnapshot{RunID: "r", Total: 10, Routed: 7, Failed: 3})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "30.0%")
}

func TestAlerter_Evaluate_CostOverrun(t *testing.T) {
	a := NewAlerter("", config.MonitoringConfig{CostThresholdUSD: 1.0})

	alerts := a.Evaluate(RunSnapshot{RunID: "r", Total: 50, Routed: 50, CostUSD: 2.5})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCostOverrun, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "$2.50")
}

func TestAlerter_Evaluate_MinimumArticlesRequired(t *testing.T) {
	a := NewAlerter("", config.MonitoringConfig{FailureRateThreshold: 0.10})

	// Skipped articles do not count toward the minimum.
	alerts := a.Evaluate(RunSnapshot{RunID: "r", Total: 10, Routed: 1, Failed: 2, Skipped: 7})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ZeroThresholdsDisabled(t *testing.T) {
	a := NewAlerter("", config.MonitoringConfig{})
	alerts := a.Evaluate(RunSnapshot{RunID: "r", Total: 10, Failed: 10, CostUSD: 999})
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg webhookMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		require.Len(t, msg.Embeds, 1)
		assert.NotEmpty(t, msg.Embeds[0].Description)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(ts.URL, config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertCostOverrun, Severity: "high", Message: "test alert 2"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_Disabled(t *testing.T) {
	a := NewAlerter("", config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "x"}}))

	b := NewAlerter("http://example.com", config.MonitoringConfig{})
	assert.Equal(t, 0, b.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sent := NewAlerter(ts.URL, config.MonitoringConfig{}).SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}

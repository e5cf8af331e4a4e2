// Package monitoring posts Discord-compatible webhook alerts: one per
// high-hype article, and end-of-run alerts when failure rate or spend cross
// their thresholds.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/config"
	"github.com/visita-intel/newsintel/internal/model"
)

// HypeMarker in a record's sentiment triggers an article alert.
const HypeMarker = "High Hype"

const (
	colorHype  = 0xFF4500
	colorAlert = 0xE74C3C
	maxDescLen = 4096
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertHype        AlertType = "high_hype"
	AlertFailureRate AlertType = "run_failure_rate"
	AlertCostOverrun AlertType = "cost_overrun"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RunSnapshot summarises one finished run.
type RunSnapshot struct {
	RunID    string
	Total    int
	Routed   int
	Failed   int
	Skipped  int
	CostUSD  float64
	Duration time.Duration
}

// Alerter sends alerts to a Discord-compatible webhook.
type Alerter struct {
	webhookURL string
	cfg        config.MonitoringConfig
	client     *http.Client
	now        func() time.Time
}

// NewAlerter creates an Alerter. An empty webhookURL disables sending.
func NewAlerter(webhookURL string, cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		webhookURL: webhookURL,
		cfg:        cfg,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Enabled reports whether a webhook is configured.
func (a *Alerter) Enabled() bool {
	return a.webhookURL != ""
}

// ShouldAlert reports whether rec warrants an article alert.
func (a *Alerter) ShouldAlert(rec model.DatasetRecord) bool {
	return a.Enabled() && strings.Contains(rec.Sentiment, HypeMarker)
}

// NotifyHype posts an embed for a high-hype record. It is a no-op for
// records that do not qualify.
func (a *Alerter) NotifyHype(ctx context.Context, rec model.DatasetRecord) (bool, error) {
	if !a.ShouldAlert(rec) {
		return false, nil
	}

	fields := []embedField{
		{Name: "Sentiment", Value: rec.Sentiment, Inline: true},
		{Name: "Category", Value: orDash(rec.Category), Inline: true},
		{Name: "Niche", Value: string(rec.Niche), Inline: true},
	}
	if rec.SourceFeed != "" {
		fields = append(fields, embedField{Name: "Source", Value: rec.SourceFeed, Inline: true})
	}
	if len(rec.KeyEntities) > 0 {
		fields = append(fields, embedField{Name: "Entities", Value: strings.Join(rec.KeyEntities, ", ")})
	}

	e := embed{
		Title:       rec.Title,
		URL:         rec.URL,
		Description: truncate(rec.AISummary, maxDescLen),
		Color:       colorHype,
		Fields:      fields,
		Timestamp:   a.now().UTC().Format(time.RFC3339),
	}
	if rec.ImageURL != nil {
		e.Thumbnail = &embedImage{URL: *rec.ImageURL}
	}

	msg := webhookMessage{
		Content: fmt.Sprintf("%s detected: %s", HypeMarker, rec.Title),
		Embeds:  []embed{e},
	}
	if err := a.post(ctx, msg); err != nil {
		return false, err
	}
	zap.L().Info("monitoring: hype alert sent", zap.String("url", rec.URL))
	return true, nil
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap RunSnapshot) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	finished := snap.Routed + snap.Failed
	if finished >= 5 && a.cfg.FailureRateThreshold > 0 {
		rate := float64(snap.Failed) / float64(finished)
		if rate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertFailureRate,
				Severity: "high",
				Message: fmt.Sprintf(
					"Run %s failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished)",
					snap.RunID, rate*100, a.cfg.FailureRateThreshold*100, snap.Failed, finished,
				),
				Details: map[string]any{
					"failure_rate": rate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       snap.Failed,
					"finished":     finished,
				},
				Timestamp: now,
			})
		}
	}

	if a.cfg.CostThresholdUSD > 0 && snap.CostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run %s API cost $%.2f exceeds threshold $%.2f",
				snap.RunID, snap.CostUSD, a.cfg.CostThresholdUSD,
			),
			Details: map[string]any{
				"cost_usd":      snap.CostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"articles":      snap.Total,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the webhook.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if !a.Enabled() || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		msg := webhookMessage{
			Embeds: []embed{{
				Title:       string(alert.Type),
				Description: alert.Message,
				Color:       colorAlert,
				Timestamp:   alert.Timestamp.Format(time.RFC3339),
			}},
		}
		if err := a.post(ctx, msg); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

type webhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Thumbnail   *embedImage  `json:"thumbnail,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

// post sends one message to the webhook URL.
func (a *Alerter) post(ctx context.Context, msg webhookMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

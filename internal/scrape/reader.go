package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/resilience"
	"github.com/visita-intel/newsintel/pkg/jina"
)

// challengeSignatures mark reader output that is an interstitial rather than
// the article.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// Reader fetches the article through the Jina Reader, which renders pages
// that the direct tier cannot. A breaker skips the tier after repeated
// upstream failures.
type Reader struct {
	client   jina.Client
	breaker  *resilience.CircuitBreaker
	minChars int
	maxChars int
}

// NewReader creates the reader tier. 3 consecutive transient failures open
// the breaker for 60s.
func NewReader(client jina.Client, minChars, maxChars int) *Reader {
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Reader{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			Name:             "reader",
			OnStateChange: func(name string, from, to resilience.CircuitState) {
				zap.L().Warn("scrape: breaker state change",
					zap.String("tier", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		minChars: minChars,
		maxChars: maxChars,
	}
}

func (r *Reader) Name() string { return "reader" }

// Supports returns true unless the breaker is open.
func (r *Reader) Supports(_ string) bool {
	return r.breaker.State() != resilience.CircuitOpen
}

// Attempt reads the URL and validates that the content is usable.
func (r *Reader) Attempt(ctx context.Context, t Target) (*Attempt, error) {
	resp, err := resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		return r.client.Read(ctx, t.URL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "reader: read")
	}

	if reason := r.unusable(resp); reason != "" {
		return nil, eris.Errorf("reader: %s", reason)
	}

	return &Attempt{
		Text:   truncateRunes(collapseWhitespace(resp.Data.Content), r.maxChars),
		Method: model.MethodReader,
	}, nil
}

// unusable explains why a reader response cannot stand in for the article,
// or returns "" when it can.
func (r *Reader) unusable(resp *jina.ReadResponse) string {
	if resp == nil {
		return "empty response"
	}
	if resp.Code != 0 && resp.Code != 200 {
		return fmt.Sprintf("upstream code %d", resp.Code)
	}

	content := strings.TrimSpace(resp.Data.Content)
	if utf8.RuneCountInString(content) < r.minChars {
		return ErrThinContent.Error()
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return "challenge page"
		}
	}
	return ""
}

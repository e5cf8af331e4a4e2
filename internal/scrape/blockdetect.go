package scrape

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/visita-intel/newsintel/internal/resilience"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockStatus     BlockType = "status"
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockPaywall    BlockType = "paywall"
)

var paywallMarkers = []string{
	"subscribe to continue reading",
	"subscribe to read the full",
	"this article is for subscribers",
	"already a subscriber? log in",
	"create a free account to continue",
}

// challengeBodyLimit bounds the pages inspected for interstitial markers.
// Real articles are larger and routinely embed captcha widgets in comment
// forms.
const challengeBodyLimit = 20 * 1024

// BlockError reports that a target refused to serve the article.
type BlockError struct {
	URL        string
	StatusCode int
	Type       BlockType
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("scrape: blocked (%s, status %d) on %s", e.Type, e.StatusCode, e.URL)
}

// HTTPStatus implements resilience.StatusCoder.
func (e *BlockError) HTTPStatus() int { return e.StatusCode }

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		return true, BlockPaywall
	}

	if resilience.IsSoftBlockStatus(resp.StatusCode) {
		return true, BlockStatus
	}

	if len(body) > challengeBodyLimit {
		return false, BlockNone
	}

	lower := strings.ToLower(string(body))

	// Cloudflare challenge page markers.
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	// Only the teaser made it into a short page.
	for _, m := range paywallMarkers {
		if strings.Contains(lower, m) {
			return true, BlockPaywall
		}
	}

	// Captcha markers.
	if strings.Contains(lower, "captcha") {
		return true, BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  http.Header
		body    string
		blocked bool
		want    BlockType
	}{
		{"cloudflare 403 ray", 403, http.Header{"Cf-Ray": {"abc123"}}, "", true, BlockCloudflare},
		{"cloudflare 503 server", 503, http.Header{"Server": {"cloudflare"}}, "", true, BlockCloudflare},
		{"plain 401", 401, http.Header{}, "", true, BlockStatus},
		{"plain 403", 403, http.Header{}, "", true, BlockStatus},
		{"rate limited", 429, http.Header{}, "", true, BlockStatus},
		{"captcha interstitial", 200, http.Header{}, "<html><body>Please complete the reCAPTCHA to continue</body></html>", true, BlockCaptcha},
		{"challenge page", 200, http.Header{}, "<title>Just a moment</title>Checking your browser", true, BlockCloudflare},
		{"js shell", 200, http.Header{}, "<html><noscript>Enable JavaScript to continue</noscript></html>", true, BlockJSShell},
		{"meta refresh shell", 200, http.Header{}, `<meta http-equiv="refresh" content="0;url=/x">`, true, BlockJSShell},
		{"payment required", 402, http.Header{}, "", true, BlockPaywall},
		{"subscriber wall", 200, http.Header{}, "<p>The senate voted on...</p><div>Subscribe to continue reading</div>", true, BlockPaywall},
		{"clean page", 200, http.Header{}, "<html><body>Valve announced the sequel today.</body></html>", false, BlockNone},
		{"not found is not a block", 404, http.Header{}, "missing", false, BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: tt.header}
			blocked, bt := DetectBlock(resp, []byte(tt.body))
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.want, bt)
		})
	}
}

func TestDetectBlock_LargeArticleWithCaptchaWidget(t *testing.T) {
	body := "<article>" + strings.Repeat("Long form reporting. ", 2000) + "</article><div class=g-recaptcha></div>"
	blocked, bt := DetectBlock(&http.Response{StatusCode: 200, Header: http.Header{}}, []byte(body))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, nil)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestBlockError(t *testing.T) {
	err := &BlockError{URL: "https://a.test", StatusCode: 403, Type: BlockStatus}
	assert.Equal(t, 403, err.HTTPStatus())
	assert.Contains(t, err.Error(), "blocked (status, status 403)")
}

package scrape

import (
	"net/http"
	"strings"
)

// BlockType names the anti-bot wall a response hit.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

var captchaMarkers = []string{"captcha", "recaptcha", "hcaptcha", "px-captcha"}

// DetectBlock inspects a direct HTTP response for bot walls. People-search
// sites sit behind these almost universally, which is why the chain falls
// through to hosted readers.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "checking your browser") ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return BlockCloudflare
	}
	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return BlockCaptcha
		}
	}

	if len(body) < 2000 &&
		((strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript")) ||
			strings.Contains(lower, `http-equiv="refresh"`)) {
		return BlockJSShell
	}
	return BlockNone
}

package identifiers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	linkCheckTimeout = 5 * time.Second
	linkUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15"

	// statusLinkedInBlocked is what LinkedIn answers unauthenticated bots
	// for pages that exist.
	statusLinkedInBlocked = 999
)

// AdaptiveLimiter is a per-host rate limiter that speeds up on success and
// halves on 429, staying between a quarter and twice its initial rate.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		initial: initial,
		current: initial,
	}
}

// Wait blocks until a request may go out.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(func(cur rate.Limit) rate.Limit { return min(cur*1.2, a.initial*2) })
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.set(func(cur rate.Limit) rate.Limit { return max(cur*0.5, a.initial/4) })
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(next func(rate.Limit) rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = next(a.current)
	a.limiter.SetLimit(a.current)
}

// LinkChecker probes profile URLs with HEAD, falling back to GET for
// servers that reject HEAD. Redirects are followed.
type LinkChecker struct {
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
	perHost  rate.Limit
}

// NewLinkChecker creates a LinkChecker. A nil client gets a 5s timeout.
func NewLinkChecker(client *http.Client) *LinkChecker {
	if client == nil {
		client = &http.Client{Timeout: linkCheckTimeout}
	}
	return &LinkChecker{
		client:   client,
		limiters: make(map[string]*AdaptiveLimiter),
		perHost:  5,
	}
}

// Live reports whether rawURL answers with a non-error status. Throttling
// answers (429, LinkedIn's 999) count as live: the host saw the page.
func (c *LinkChecker) Live(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	lim := c.limiterFor(strings.ToLower(u.Hostname()))
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		if err := lim.Wait(ctx); err != nil {
			return false
		}
		status, err := c.probe(ctx, method, rawURL)
		if err != nil {
			zap.L().Debug("identifiers: link probe failed", zap.String("method", method), zap.String("url", rawURL), zap.Error(err))
			continue
		}
		switch {
		case status == http.StatusTooManyRequests:
			lim.OnRateLimit()
			return true
		case status == statusLinkedInBlocked:
			return true
		case status < 400:
			lim.OnSuccess()
			return true
		}
	}
	return false
}

func (c *LinkChecker) probe(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", linkUserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

func (c *LinkChecker) limiterFor(host string) *AdaptiveLimiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(c.perHost, int(c.perHost))
		c.limiters[host] = lim
	}
	return lim
}

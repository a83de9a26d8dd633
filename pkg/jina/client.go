// Package jina talks to Jina's hosted Reader (r.jina.ai), which renders a
// page to markdown, and Search (s.jina.ai), which returns web results.
package jina

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultReaderURL = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"
	maxErrorBody     = 2048
)

// Client reads pages and searches the web.
type Client interface {
	// Read renders targetURL to markdown.
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error)
	// Search runs a web search. An empty result set is not an error.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the Reader's JSON envelope.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData is a rendered page.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage reports the tokens billed for a read.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the Search JSON envelope.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one web hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// StatusError is a non-200 response that survived retries.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: HTTP %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// SearchOption configures one search.
type SearchOption func(url.Values, http.Header)

// WithSiteFilter limits results to domain.
func WithSiteFilter(domain string) SearchOption {
	return func(q url.Values, _ http.Header) {
		if domain != "" {
			q.Set("site", domain)
		}
	}
}

// WithCount caps the number of results.
func WithCount(n int) SearchOption {
	return func(q url.Values, _ http.Header) {
		if n > 0 {
			q.Set("num", strconv.Itoa(n))
		}
	}
}

// WithoutContent skips fetching each hit's page, returning only title,
// URL and description. Much faster when only links are needed.
func WithoutContent() SearchOption {
	return func(_ url.Values, h http.Header) { h.Set("X-Respond-With", "no-content") }
}

// ReadOption configures one read.
type ReadOption func(http.Header)

// WithReadTimeout bounds how long the Reader waits for the page (seconds).
func WithReadTimeout(secs int) ReadOption {
	return func(h http.Header) {
		if secs > 0 {
			h.Set("X-Timeout", strconv.Itoa(secs))
		}
	}
}

// WithTargetSelector limits extraction to elements matching a CSS selector.
func WithTargetSelector(sel string) ReadOption {
	return func(h http.Header) {
		if sel != "" {
			h.Set("X-Target-Selector", sel)
		}
	}
}

// WithNoCache bypasses the Reader's page cache.
func WithNoCache() ReadOption {
	return func(h http.Header) { h.Set("X-No-Cache", "true") }
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Reader base URL. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.readerURL = u
		}
	}
}

// WithSearchBaseURL overrides the Search base URL. Empty keeps the default.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchURL = u
		}
	}
}

// WithRetry sets the attempt budget and base delay for transient failures.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *httpClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if delay > 0 {
			c.delay = delay
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey    string
	readerURL string
	searchURL string
	attempts  uint
	delay     time.Duration
	http      *http.Client
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readerURL: defaultReaderURL,
		searchURL: defaultSearchURL,
		attempts:  3,
		delay:     time.Second,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error) {
	h := http.Header{}
	h.Set("X-Return-Format", "markdown")
	for _, o := range opts {
		o(h)
	}

	body, status, err := c.get(ctx, c.readerURL+"/"+targetURL, h)
	if err != nil {
		return nil, eris.Wrapf(err, "jina: read %s", targetURL)
	}
	if status != http.StatusOK {
		return nil, &StatusError{StatusCode: status, Body: string(body)}
	}

	var out ReadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: decode read response")
	}
	return &out, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	q := url.Values{}
	h := http.Header{}
	for _, o := range opts {
		o(q, h)
	}
	u := c.searchURL + "/" + url.QueryEscape(query)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, status, err := c.get(ctx, u, h)
	if err != nil {
		return nil, eris.Wrapf(err, "jina: search %q", query)
	}
	// 422 means the query produced no results.
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if status != http.StatusOK {
		return nil, &StatusError{StatusCode: status, Body: string(body)}
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: decode search response")
	}
	return &out, nil
}

// get issues an authenticated GET, retrying network errors and transient
// statuses. A final non-transient status is returned to the caller rather
// than as an error.
func (c *httpClient) get(ctx context.Context, rawURL string, h http.Header) ([]byte, int, error) {
	type reply struct {
		body   []byte
		status int
	}
	r, err := retry.DoWithData(
		func() (reply, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return reply{}, retry.Unrecoverable(eris.Wrap(err, "build request"))
			}
			req.Header = h.Clone()
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
			req.Header.Set("Accept", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				return reply{}, err
			}
			defer resp.Body.Close() //nolint:errcheck

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return reply{}, eris.Wrap(err, "read body")
			}
			if se := (&StatusError{StatusCode: resp.StatusCode}); se.Transient() {
				if len(body) > maxErrorBody {
					body = body[:maxErrorBody]
				}
				se.Body = string(body)
				return reply{}, se
			}
			return reply{body: body, status: resp.StatusCode}, nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxJitter(c.delay/2),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			var se *StatusError
			return !errors.As(err, &se) || se.Transient()
		}),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Debug("jina: retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, 0, err
	}
	return r.body, r.status, nil
}

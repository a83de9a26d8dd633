// Package firecrawl renders single pages through the hosted Firecrawl
// scraper. People-search sites sit behind bot protection, so requests
// default to Firecrawl's automatic proxy tier.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.firecrawl.dev/v2"
	maxErrorBody   = 2048
)

// Proxy tiers accepted by the scrape endpoint.
const (
	ProxyBasic   = "basic"
	ProxyStealth = "stealth"
	ProxyAuto    = "auto"
)

// Client renders one page.
type Client interface {
	// Scrape returns the rendered document. A response with success=false
	// is reported as an error.
	Scrape(ctx context.Context, req ScrapeRequest) (*Document, error)
}

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent,omitempty"`
	// WaitFor delays capture (ms) so client-rendered lists load.
	WaitFor int `json:"waitFor,omitempty"`
	// Timeout is the server-side budget in ms.
	Timeout  int    `json:"timeout,omitempty"`
	BlockAds bool   `json:"blockAds,omitempty"`
	Proxy    string `json:"proxy,omitempty"`
	// MaxAge accepts a cached render up to this many ms old.
	MaxAge   int64     `json:"maxAge,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Location pins the egress country so region-locked record sites answer.
type Location struct {
	Country   string   `json:"country,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// Document is a rendered page.
type Document struct {
	Markdown string   `json:"markdown"`
	Links    []string `json:"links,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata describes the rendered page.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OGImage     string `json:"ogImage,omitempty"`
	SourceURL   string `json:"sourceURL"`
	URL         string `json:"url,omitempty"`
	StatusCode  int    `json:"statusCode"`
	Error       string `json:"error,omitempty"`
}

// FinalURL is the URL after redirects, falling back to the requested one.
func (m Metadata) FinalURL() string {
	if m.URL != "" {
		return m.URL
	}
	return m.SourceURL
}

type envelope struct {
	Success bool     `json:"success"`
	Data    Document `json:"data"`
	Error   string   `json:"error,omitempty"`
}

// APIError is returned for a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithProxy sets the proxy tier used when a request names none.
func WithProxy(tier string) Option {
	return func(c *httpClient) { c.proxy = tier }
}

type httpClient struct {
	apiKey  string
	baseURL string
	proxy   string
	http    *http.Client
}

// NewClient creates a Firecrawl client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		proxy:   ProxyAuto,
		http:    &http.Client{Timeout: 45 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Scrape(ctx context.Context, in ScrapeRequest) (*Document, error) {
	if len(in.Formats) == 0 {
		in.Formats = []string{"markdown"}
	}
	if in.Proxy == "" {
		in.Proxy = c.proxy
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "firecrawl: scrape %s", in.URL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, eris.Wrap(err, "firecrawl: decode response")
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Data.Metadata.Error
		}
		return nil, eris.Errorf("firecrawl: scrape %s failed: %s", in.URL, msg)
	}
	return &env.Data, nil
}

// Package apify runs Apify actors synchronously and returns their dataset items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.apify.com"
	defaultTimeout = 20 * time.Second
)

// Client runs actors.
type Client interface {
	// RunSync starts actorID with input, waits for it to finish, and returns
	// the items of its default dataset.
	RunSync(ctx context.Context, actorID string, input any) ([]json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRunTimeout bounds each actor run on the Apify side.
func WithRunTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.runTimeout = d
		}
	}
}

// WithRateLimit caps actor starts per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 2)
		}
	}
}

type httpClient struct {
	token      string
	baseURL    string
	runTimeout time.Duration
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:      token,
		baseURL:    defaultBaseURL,
		runTimeout: defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		// Leave headroom over the actor timeout for dataset download.
		c.http = &http.Client{Timeout: c.runTimeout + 15*time.Second}
	}
	return c
}

// actorPath converts "owner/name" into the "owner~name" form the API expects.
func actorPath(actorID string) string {
	return strings.ReplaceAll(actorID, "/", "~")
}

func (c *httpClient) RunSync(ctx context.Context, actorID string, input any) ([]json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "apify: rate limit wait")
		}
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal input")
	}

	q := url.Values{}
	q.Set("token", c.token)
	q.Set("timeout", strconv.Itoa(int(c.runTimeout.Seconds())))
	endpoint := c.baseURL + "/v2/acts/" + actorPath(actorID) + "/run-sync-get-dataset-items?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "apify: run %s", actorID)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apify: read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("apify: %s unexpected status %d: %s", actorID, resp.StatusCode, string(respBody))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, eris.Wrap(err, "apify: unmarshal dataset items")
	}
	return items, nil
}

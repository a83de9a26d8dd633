// Package serpapi provides a client for the SerpApi Google search engines.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://serpapi.com"

// Engines supported by this client.
const (
	EngineGoogle       = "google"
	EngineGoogleImages = "google_images"
)

// Client runs SerpApi searches.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest holds the query parameters for GET /search.
type SearchRequest struct {
	Engine string
	Query  string
	Start  int
	Num    int
}

// SearchResponse is the subset of SerpApi output we consume.
type SearchResponse struct {
	KnowledgeGraph  *KnowledgeGraph `json:"knowledge_graph,omitempty"`
	OrganicResults  []OrganicResult `json:"organic_results,omitempty"`
	RelatedSearches []RelatedSearch `json:"related_searches,omitempty"`
	ImagesResults   []ImageResult   `json:"images_results,omitempty"`

	// Error is set for empty result pages ("Google hasn't returned any
	// results for this query."), which are not failures.
	Error string `json:"error,omitempty"`
}

// KnowledgeGraph is the entity panel on the first results page.
type KnowledgeGraph struct {
	Title        string            `json:"title"`
	Type         string            `json:"type"`
	Description  string            `json:"description"`
	HeaderImages []HeaderImage     `json:"header_images"`
	Images       []json.RawMessage `json:"images"`
}

// HeaderImage is one knowledge-graph header image.
type HeaderImage struct {
	Image  string `json:"image"`
	Source string `json:"source"`
}

// FirstImage returns the first header image, or else the first entry of
// images, which SerpApi emits either as a bare URL or as an object.
func (kg *KnowledgeGraph) FirstImage() string {
	if len(kg.HeaderImages) > 0 && kg.HeaderImages[0].Image != "" {
		return kg.HeaderImages[0].Image
	}
	if len(kg.Images) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(kg.Images[0], &s); err == nil {
		return s
	}
	var obj struct {
		Image     string `json:"image"`
		Thumbnail string `json:"thumbnail"`
	}
	if err := json.Unmarshal(kg.Images[0], &obj); err == nil {
		if obj.Image != "" {
			return obj.Image
		}
		return obj.Thumbnail
	}
	return ""
}

// OrganicResult is one organic web result.
type OrganicResult struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet"`
	Thumbnail string `json:"thumbnail"`
}

// RelatedSearch is a "people also search for" entry.
type RelatedSearch struct {
	Query     string `json:"query"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
}

// ImageResult is one google_images result.
type ImageResult struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
	Link      string `json:"link"`
}

// BestURL prefers the original image over the thumbnail.
func (r ImageResult) BestURL() string {
	if r.Original != "" {
		return r.Original
	}
	return r.Thumbnail
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

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a SerpApi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, in SearchRequest) (*SearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "serpapi: rate limit wait")
		}
	}

	engine := in.Engine
	if engine == "" {
		engine = EngineGoogle
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("engine", engine)
	q.Set("q", in.Query)
	q.Set("google_domain", "google.com")
	q.Set("gl", "us")
	q.Set("hl", "en")
	if in.Num > 0 {
		q.Set("num", strconv.Itoa(in.Num))
	}
	if in.Start > 0 {
		q.Set("start", strconv.Itoa(in.Start))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("serpapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "serpapi: unmarshal response")
	}
	return &result, nil
}

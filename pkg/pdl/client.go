// Package pdl provides a client for the People Data Labs person APIs.
package pdl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.peopledatalabs.com"

// Client performs person search and enrichment.
type Client interface {
	// Search runs a person search SQL query. A query with no matches
	// returns an empty response, not an error.
	Search(ctx context.Context, sql string, size int) (*SearchResponse, error)
	// Enrich returns the best matching person, or nil when there is none.
	Enrich(ctx context.Context, params EnrichParams) (*Person, error)
}

// SearchResponse is the response from GET /v5/person/search.
type SearchResponse struct {
	Status int      `json:"status"`
	Total  int      `json:"total"`
	Data   []Person `json:"data"`
}

// EnrichParams selects a record for enrichment. Set exactly one field.
type EnrichParams struct {
	PDLID   string
	Profile string
	Email   string
}

func (p EnrichParams) values() url.Values {
	v := url.Values{}
	switch {
	case p.PDLID != "":
		v.Set("pdl_id", p.PDLID)
	case p.Profile != "":
		v.Set("profile", p.Profile)
	case p.Email != "":
		v.Set("email", p.Email)
	}
	return v
}

type enrichResponse struct {
	Status     int     `json:"status"`
	Likelihood int     `json:"likelihood"`
	Data       *Person `json:"data"`
}

// Person is the subset of the PDL person schema we consume. PDL returns
// null for unknown fields, hence the pointers.
type Person struct {
	ID               string      `json:"id"`
	FullName         *string     `json:"full_name"`
	JobTitle         *string     `json:"job_title"`
	JobCompanyName   *string     `json:"job_company_name"`
	LocationName     *string     `json:"location_name"`
	BirthYear        *int        `json:"birth_year"`
	LinkedInURL      *string     `json:"linkedin_url"`
	LinkedInUsername *string     `json:"linkedin_username"`
	TwitterURL       *string     `json:"twitter_url"`
	TwitterUsername  *string     `json:"twitter_username"`
	FacebookURL      *string     `json:"facebook_url"`
	FacebookUsername *string     `json:"facebook_username"`
	GithubURL        *string     `json:"github_url"`
	Education        []Education `json:"education"`
}

// Education is one education entry.
type Education struct {
	School School `json:"school"`
}

// School names an education institution.
type School struct {
	Name *string `json:"name"`
}

// Str dereferences a nullable string field.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a People Data Labs client.
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

func (c *httpClient) Search(ctx context.Context, sql string, size int) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("sql", sql)
	q.Set("size", strconv.Itoa(size))

	body, status, err := c.get(ctx, "/v5/person/search", q)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return &SearchResponse{Status: status}, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("pdl: search unexpected status %d: %s", status, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "pdl: unmarshal search response")
	}
	return &result, nil
}

func (c *httpClient) Enrich(ctx context.Context, params EnrichParams) (*Person, error) {
	q := params.values()
	if len(q) == 0 {
		return nil, eris.New("pdl: enrich requires pdl_id, profile, or email")
	}

	body, status, err := c.get(ctx, "/v5/person/enrich", q)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("pdl: enrich unexpected status %d: %s", status, string(body))
	}

	var result enrichResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "pdl: unmarshal enrich response")
	}
	if result.Status != 0 && result.Status != http.StatusOK {
		return nil, nil
	}
	return result.Data, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "pdl: create request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "pdl: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "pdl: read response")
	}
	return body, resp.StatusCode, nil
}

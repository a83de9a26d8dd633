package model

import "encoding/json"

// StructuredInfo is the best-effort structured view extracted from free text.
type StructuredInfo struct {
	BasicInfo       BasicInfo        `json:"basic_info"`
	SocialProfiles  []SocialProfile  `json:"social_profiles"`
	Photos          []Photo          `json:"photos"`
	NotableMentions []NotableMention `json:"notable_mentions"`
}

// TextSearchResult is the output of a free-text web search.
type TextSearchResult struct {
	Content    string          `json:"content"`
	Structured *StructuredInfo `json:"structured,omitempty"`
}

// IdentityRecord is an enriched identity-graph record. Nil pointers mark
// fields the provider returned as null.
type IdentityRecord struct {
	ID               string   `json:"id,omitempty"`
	FullName         string   `json:"full_name,omitempty"`
	JobTitle         string   `json:"job_title,omitempty"`
	JobCompanyName   string   `json:"job_company_name,omitempty"`
	LocationName     string   `json:"location_name,omitempty"`
	Schools          []string `json:"schools,omitempty"`
	LinkedInURL      *string  `json:"linkedin_url,omitempty"`
	LinkedInUsername *string  `json:"linkedin_username,omitempty"`
	TwitterURL       *string  `json:"twitter_url,omitempty"`
	TwitterUsername  *string  `json:"twitter_username,omitempty"`
	FacebookURL      *string  `json:"facebook_url,omitempty"`
	FacebookUsername *string  `json:"facebook_username,omitempty"`
}

// EnrichKey selects an identity-graph record by provider id or profile URL.
type EnrichKey struct {
	ID         string
	ProfileURL string
}

// Page is a fetched web page rendered as markdown.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Markdown   string `json:"markdown"`
	StatusCode int    `json:"status_code"`
}

// ScrapeResult is the raw output of one scraper run. Items holds
// provider-shaped records for social platforms; Pages holds fetched
// people-search pages, and Source is then the site name.
type ScrapeResult struct {
	Source string            `json:"source"`
	Target string            `json:"target"`
	Items  []json.RawMessage `json:"items,omitempty"`
	Pages  []Page            `json:"pages,omitempty"`
	Err    error             `json:"-"`
}

// OK reports whether the scrape produced data.
func (r ScrapeResult) OK() bool {
	return r.Err == nil && (len(r.Items) > 0 || len(r.Pages) > 0)
}

// PublicRecord reports whether r came from a people-search site.
func (r ScrapeResult) PublicRecord() bool {
	return len(r.Pages) > 0
}

// Identifiers maps a platform to a handle or profile URL.
type Identifiers map[Platform]string

// HasAny reports whether any of the given platforms has an identifier.
func (ids Identifiers) HasAny(platforms ...Platform) bool {
	for _, p := range platforms {
		if ids[p] != "" {
			return true
		}
	}
	return false
}

// SearchHit is one organic web search result.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchRequest asks for a full aggregation.
type SearchRequest struct {
	Query            string     `json:"query"`
	Candidate        *Candidate `json:"candidate,omitempty"`
	ReferencePhotoID string     `json:"referencePhotoId,omitempty"`
}

// AggregateInput gathers every per-source result for one aggregation.
type AggregateInput struct {
	Query            string
	Candidate        *Candidate
	Structured       *StructuredInfo
	Identity         *IdentityRecord
	Scrapes          []ScrapeResult
	FallbackProfiles []SocialProfile
	ReferencePhoto   []byte
}

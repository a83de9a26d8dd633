// Package sources adapts external providers to the capabilities the search
// pipeline consumes. Every adapter fails on its own: callers log the error
// and continue with an empty value.
package sources

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
)

// ErrUnavailable is returned by adapters built without credentials.
var ErrUnavailable = eris.New("sources: adapter unavailable")

// IsUnavailable reports whether err means the adapter is not configured.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// TextSearch is free-text web search with best-effort structuring.
type TextSearch interface {
	Query(ctx context.Context, text string) (*model.TextSearchResult, error)
	ExtractStructured(ctx context.Context, query, raw string) (*model.StructuredInfo, error)
	// FindCandidates is the last-resort candidate lookup.
	FindCandidates(ctx context.Context, query string) ([]model.Candidate, error)
}

// IdentityGraph is a structured people-data lookup.
type IdentityGraph interface {
	Search(ctx context.Context, q model.IdentityQuery) ([]model.Candidate, error)
	// Enrich returns nil, nil when no record matches.
	Enrich(ctx context.Context, key model.EnrichKey) (*model.IdentityRecord, error)
}

// CandidateSearch turns a web results page into candidate cards.
type CandidateSearch interface {
	Candidates(ctx context.Context, query string) ([]model.Candidate, error)
}

// ImageSearch is keyword image lookup.
type ImageSearch interface {
	// SearchOne returns "" when nothing is found.
	SearchOne(ctx context.Context, text string) (string, error)
	SearchMany(ctx context.Context, text string, count int) ([]string, error)
}

// WebSearch runs site-restricted organic searches.
type WebSearch interface {
	SiteSearch(ctx context.Context, site, query string) ([]model.SearchHit, error)
}

// SocialScraper fetches one platform profile. Failures are reported in
// the result, never returned.
type SocialScraper interface {
	Fetch(ctx context.Context, platform model.Platform, target string) model.ScrapeResult
	Supports(platform model.Platform) bool
}

// PublicRecordScanner fetches people-search result pages for a name.
type PublicRecordScanner interface {
	Scan(ctx context.Context, name, location string) []model.ScrapeResult
}

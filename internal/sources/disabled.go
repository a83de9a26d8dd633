package sources

import (
	"context"

	"github.com/sells-group/person-search/internal/model"
)

type disabledText struct{}

// DisabledTextSearch returns a TextSearch that always reports ErrUnavailable.
func DisabledTextSearch() TextSearch { return disabledText{} }

func (disabledText) Query(context.Context, string) (*model.TextSearchResult, error) {
	return nil, ErrUnavailable
}

func (disabledText) ExtractStructured(context.Context, string, string) (*model.StructuredInfo, error) {
	return nil, ErrUnavailable
}

func (disabledText) FindCandidates(context.Context, string) ([]model.Candidate, error) {
	return nil, ErrUnavailable
}

type disabledIdentity struct{}

// DisabledIdentityGraph returns an IdentityGraph that always reports ErrUnavailable.
func DisabledIdentityGraph() IdentityGraph { return disabledIdentity{} }

func (disabledIdentity) Search(context.Context, model.IdentityQuery) ([]model.Candidate, error) {
	return nil, ErrUnavailable
}

func (disabledIdentity) Enrich(context.Context, model.EnrichKey) (*model.IdentityRecord, error) {
	return nil, ErrUnavailable
}

type disabledCandidates struct{}

// DisabledCandidateSearch returns a CandidateSearch that always reports ErrUnavailable.
func DisabledCandidateSearch() CandidateSearch { return disabledCandidates{} }

func (disabledCandidates) Candidates(context.Context, string) ([]model.Candidate, error) {
	return nil, ErrUnavailable
}

type disabledImages struct{}

// DisabledImageSearch returns an ImageSearch that always reports ErrUnavailable.
func DisabledImageSearch() ImageSearch { return disabledImages{} }

func (disabledImages) SearchOne(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (disabledImages) SearchMany(context.Context, string, int) ([]string, error) {
	return nil, ErrUnavailable
}

type disabledWeb struct{}

// DisabledWebSearch returns a WebSearch that always reports ErrUnavailable.
func DisabledWebSearch() WebSearch { return disabledWeb{} }

func (disabledWeb) SiteSearch(context.Context, string, string) ([]model.SearchHit, error) {
	return nil, ErrUnavailable
}

type disabledSocial struct{}

// DisabledSocialScraper returns a SocialScraper that supports no platform.
func DisabledSocialScraper() SocialScraper { return disabledSocial{} }

func (disabledSocial) Fetch(_ context.Context, p model.Platform, target string) model.ScrapeResult {
	return model.ScrapeResult{Source: string(p), Target: target, Err: ErrUnavailable}
}

func (disabledSocial) Supports(model.Platform) bool { return false }

type disabledRecords struct{}

// DisabledPublicRecordScanner returns a scanner that finds nothing.
func DisabledPublicRecordScanner() PublicRecordScanner { return disabledRecords{} }

func (disabledRecords) Scan(context.Context, string, string) []model.ScrapeResult { return nil }

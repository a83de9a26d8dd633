package sources

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/pkg/jina"
)

// Profile lookups only need the first few links.
const siteSearchResults = 10

// JinaSearch serves site searches from Jina Search.
type JinaSearch struct {
	client jina.Client
}

// NewJinaSearch wraps client.
func NewJinaSearch(client jina.Client) *JinaSearch {
	return &JinaSearch{client: client}
}

// SiteSearch implements WebSearch.
func (j *JinaSearch) SiteSearch(ctx context.Context, site, query string) ([]model.SearchHit, error) {
	resp, err := j.client.Search(ctx, query, jina.WithSiteFilter(site), jina.WithCount(siteSearchResults), jina.WithoutContent())
	if err != nil {
		return nil, eris.Wrapf(err, "jina: site search %s", site)
	}
	hits := make([]model.SearchHit, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.URL == "" {
			continue
		}
		hits = append(hits, model.SearchHit{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return hits, nil
}

// FirstWeb tries each WebSearch in order and returns the first non-empty
// hit list.
type FirstWeb []WebSearch

// SiteSearch implements WebSearch.
func (f FirstWeb) SiteSearch(ctx context.Context, site, query string) ([]model.SearchHit, error) {
	var lastErr error = ErrUnavailable
	for _, w := range f {
		hits, err := w.SiteSearch(ctx, site, query)
		if err != nil {
			lastErr = err
			logDegraded("site search", err)
			continue
		}
		if len(hits) > 0 {
			return hits, nil
		}
		lastErr = nil
	}
	return nil, lastErr
}

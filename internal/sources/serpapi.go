package sources

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/pkg/serpapi"
)

const (
	candidatePages   = 4
	candidatePerPage = 4
	relatedSearchTag = "Related search"
)

// SerpAPI serves candidate cards, image lookups, and site searches from
// Google results.
type SerpAPI struct {
	client serpapi.Client
}

// NewSerpAPI wraps client.
func NewSerpAPI(client serpapi.Client) *SerpAPI {
	return &SerpAPI{client: client}
}

// Candidates scrolls the first pages of web results and turns the
// knowledge graph, organic results, and pictured related searches into
// candidates. A failed page is skipped.
func (s *SerpAPI) Candidates(ctx context.Context, query string) ([]model.Candidate, error) {
	var raw []model.Candidate
	var failed int
	for page := range candidatePages {
		resp, err := s.client.Search(ctx, serpapi.SearchRequest{
			Engine: "google",
			Query:  query,
			Num:    candidatePerPage,
			Start:  page * candidatePerPage,
		})
		if err != nil {
			failed++
			zap.L().Warn("serpapi: candidate page failed", zap.Int("page", page+1), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if page == 0 && resp.KnowledgeGraph != nil {
			if c, ok := knowledgeGraphCandidate(resp.KnowledgeGraph); ok {
				raw = append(raw, c)
			}
		}
		for _, r := range resp.OrganicResults {
			if c, ok := organicCandidate(r); ok {
				raw = append(raw, c)
			}
		}
		if page == 0 {
			for _, r := range resp.RelatedSearches {
				if c, ok := relatedCandidate(r); ok {
					raw = append(raw, c)
				}
			}
		}
	}
	if failed == candidatePages {
		return nil, eris.New("serpapi: every candidate page failed")
	}
	return dedupCandidates(raw), nil
}

func knowledgeGraphCandidate(kg *serpapi.KnowledgeGraph) (model.Candidate, bool) {
	name := strings.TrimSpace(kg.Title)
	if name == "" {
		return model.Candidate{}, false
	}
	desc := kg.Description
	if desc == "" {
		desc = kg.Type
	}
	return model.Candidate{
		ID:          name,
		Name:        name,
		Description: desc,
		ImageURL:    kg.FirstImage(),
		Source:      model.CandidateSourceSerpAPI,
	}, true
}

func organicCandidate(r serpapi.OrganicResult) (model.Candidate, bool) {
	name := CleanName(r.Title)
	if name == "" {
		return model.Candidate{}, false
	}
	return model.Candidate{
		ID:          name,
		Name:        name,
		Description: r.Snippet,
		ImageURL:    r.Thumbnail,
		Source:      model.CandidateSourceSerpAPI,
	}, true
}

// Related searches without a thumbnail are usually keyword suggestions
// rather than people.
func relatedCandidate(r serpapi.RelatedSearch) (model.Candidate, bool) {
	q := strings.TrimSpace(r.Query)
	if q == "" || r.Thumbnail == "" {
		return model.Candidate{}, false
	}
	return model.Candidate{
		ID:          q,
		Name:        q,
		Description: relatedSearchTag,
		ImageURL:    r.Thumbnail,
		Source:      model.CandidateSourceSerpAPI,
	}, true
}

// dedupCandidates drops repeats of the same name and description prefix
// and repeats of an image already shown. Surviving ids are made unique so
// a selection maps back to exactly one card.
func dedupCandidates(raw []model.Candidate) []model.Candidate {
	seenKeys := make(map[string]bool, len(raw))
	seenImages := make(map[string]bool, len(raw))
	out := make([]model.Candidate, 0, len(raw))

	for _, c := range raw {
		key := strings.ToLower(strings.TrimSpace(c.ID)) + "::" + strings.ToLower(strings.TrimSpace(prefix(c.Description, 80)))
		if seenKeys[key] || (c.ImageURL != "" && seenImages[c.ImageURL]) {
			continue
		}
		seenKeys[key] = true
		if c.ImageURL != "" {
			seenImages[c.ImageURL] = true
		}
		out = append(out, c)
	}
	model.UniqueIDs(out)
	return out
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	parenRe        = regexp.MustCompile(`\s*\(.*?\)`)
	separatorRe    = regexp.MustCompile(`\s+[|\-]\s+`)
	onPlatformRe   = regexp.MustCompile(`(?i)\s+on\s+(Instagram|Twitter|LinkedIn|Facebook).*$`)
	countPrefixRe  = regexp.MustCompile(`^\d+\+?\s+`)
	topCountPrefix = regexp.MustCompile(`(?i)^Top\s+\d+\s+`)
)

// CleanName reduces a result title to the name it is about:
// "Jane Doe (Actor) - Wikipedia" becomes "Jane Doe".
func CleanName(title string) string {
	if title == "" {
		return ""
	}
	name := parenRe.ReplaceAllString(title, "")
	name = separatorRe.Split(name, 2)[0]
	name = onPlatformRe.ReplaceAllString(name, "")
	name = countPrefixRe.ReplaceAllString(name, "")
	name = topCountPrefix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// SearchOne returns the best image for text.
func (s *SerpAPI) SearchOne(ctx context.Context, text string) (string, error) {
	resp, err := s.client.Search(ctx, serpapi.SearchRequest{Engine: "google_images", Query: text, Num: 1})
	if err != nil {
		return "", eris.Wrap(err, "serpapi: image search")
	}
	if len(resp.ImagesResults) == 0 {
		return "", nil
	}
	return resp.ImagesResults[0].BestURL(), nil
}

// SearchMany returns up to count full-size image URLs for text.
func (s *SerpAPI) SearchMany(ctx context.Context, text string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	resp, err := s.client.Search(ctx, serpapi.SearchRequest{Engine: "google_images", Query: text, Num: count})
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: image search")
	}
	urls := make([]string, 0, count)
	for _, r := range resp.ImagesResults {
		if len(urls) == count {
			break
		}
		if r.Original != "" {
			urls = append(urls, r.Original)
		}
	}
	return urls, nil
}

// SiteSearch runs "site:<site> <query>" and returns the organic results.
func (s *SerpAPI) SiteSearch(ctx context.Context, site, query string) ([]model.SearchHit, error) {
	resp, err := s.client.Search(ctx, serpapi.SearchRequest{
		Engine: "google",
		Query:  "site:" + site + " " + query,
		Num:    candidatePerPage,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "serpapi: site search %s", site)
	}
	hits := make([]model.SearchHit, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if r.Link == "" {
			continue
		}
		hits = append(hits, model.SearchHit{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return hits, nil
}

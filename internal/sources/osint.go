package sources

import (
	"context"
	_ "embed"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/scrape"
)

//go:embed people_search.yaml
var peopleSearchYAML []byte

const (
	peopleSearchLimit = 4
	// Result pages are long; the head holds the matches.
	maxRecordChars = 10000
)

// Site is one people-search site and its URL template.
type Site struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadSites parses a site catalog. An empty document yields the embedded
// default.
func LoadSites(doc []byte) ([]Site, error) {
	if len(doc) == 0 {
		doc = peopleSearchYAML
	}
	var parsed struct {
		Sites []Site `yaml:"sites"`
	}
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, eris.Wrap(err, "sources: parse site catalog")
	}
	for _, s := range parsed.Sites {
		if s.Name == "" || s.URL == "" {
			return nil, eris.New("sources: site entry needs name and url")
		}
	}
	return parsed.Sites, nil
}

// SiteURLs fills the catalog templates for a name. It returns nil unless
// the name has at least a first and a last part.
func SiteURLs(sites []Site, name, location string) []Site {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return nil
	}
	first, last := parts[0], parts[len(parts)-1]
	location = strings.TrimSpace(location)

	slug := "us"
	if location != "" {
		slug = strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(location, ",", ""), " ", "_"))
	}
	r := strings.NewReplacer(
		"{first_lower}", url.PathEscape(strings.ToLower(first)),
		"{last_lower}", url.PathEscape(strings.ToLower(last)),
		"{first}", url.QueryEscape(first),
		"{last}", url.QueryEscape(last),
		"{location_slug}", url.PathEscape(slug),
		"{location}", url.QueryEscape(location),
	)

	out := make([]Site, len(sites))
	for i, s := range sites {
		out[i] = Site{Name: s.Name, URL: r.Replace(s.URL)}
	}
	return out
}

// PeopleSearch fetches people-search result pages through a reader chain.
type PeopleSearch struct {
	chain *scrape.Chain
	sites []Site
}

// NewPeopleSearch wires chain with sites.
func NewPeopleSearch(chain *scrape.Chain, sites []Site) *PeopleSearch {
	return &PeopleSearch{chain: chain, sites: sites}
}

// Scan fetches every site for name and returns one result per site that
// produced a page, in catalog order.
func (p *PeopleSearch) Scan(ctx context.Context, name, location string) []model.ScrapeResult {
	targets := SiteURLs(p.sites, name, location)
	if len(targets) == 0 {
		zap.L().Debug("people search: need first and last name", zap.String("name", name))
		return nil
	}

	urls := make([]string, len(targets))
	for i, t := range targets {
		urls[i] = t.URL
	}
	pages := p.chain.ScrapeAll(ctx, urls, peopleSearchLimit)

	var out []model.ScrapeResult
	for i, res := range pages {
		if res == nil {
			continue
		}
		pg := res.Page
		pg.Markdown = prefix(pg.Markdown, maxRecordChars)
		out = append(out, model.ScrapeResult{
			Source: targets[i].Name,
			Target: targets[i].URL,
			Pages:  []model.Page{pg},
		})
	}
	zap.L().Info("people search: scan complete",
		zap.Int("sites", len(targets)),
		zap.Int("pages", len(out)),
	)
	return out
}

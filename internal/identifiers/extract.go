// Package identifiers works out which social accounts to scrape for a
// search: handles from the query, profiles from structured text-search
// output and, when the key platforms are missing, site-restricted web
// search guesses that pass a liveness check.
package identifiers

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/sources"
)

// SourceSearchFallback tags profiles discovered by site-restricted search.
const SourceSearchFallback = "search_fallback"

// site is one fallback lookup: the site: restriction and the hosts a hit
// must be on to count for the platform.
type site struct {
	platform model.Platform
	filter   string
	hosts    []string
}

var fallbackSites = []site{
	{model.PlatformInstagram, "instagram.com", []string{"instagram.com"}},
	{model.PlatformTwitter, "twitter.com", []string{"twitter.com", "x.com"}},
	{model.PlatformLinkedIn, "linkedin.com/in/", []string{"linkedin.com"}},
	{model.PlatformFacebook, "facebook.com", []string{"facebook.com"}},
	{model.PlatformYouTube, "youtube.com", []string{"youtube.com"}},
	{model.PlatformTikTok, "tiktok.com", []string{"tiktok.com"}},
}

// LinkValidator reports whether a discovered profile URL is reachable.
type LinkValidator interface {
	Live(ctx context.Context, rawURL string) bool
}

// Extractor resolves platform identifiers.
type Extractor struct {
	web   sources.WebSearch
	links LinkValidator
}

// New creates an Extractor. A nil links accepts every fallback URL.
func New(web sources.WebSearch, links LinkValidator) *Extractor {
	return &Extractor{web: web, links: links}
}

// Extract returns the identifiers to scrape plus the profiles the
// fallback search discovered. Fallback profiles only include URLs that
// answered the liveness check; the same links are merged into the
// identifiers without overwriting an existing entry.
func (e *Extractor) Extract(ctx context.Context, query string, info *model.StructuredInfo) (model.Identifiers, []model.SocialProfile) {
	ids := FromQuery(query, info)
	if ids.HasAny(model.PriorityPlatforms...) {
		return ids, nil
	}

	zap.L().Debug("identifiers: key platforms missing, running site search", zap.String("query", query))
	found := e.searchSites(ctx, strings.TrimPrefix(strings.TrimSpace(query), "@"))

	var profiles []model.SocialProfile
	for _, s := range fallbackSites {
		value, ok := found[s.platform]
		if !ok {
			continue
		}
		profile := fallbackProfile(s.platform, value)
		if e.links != nil && !e.links.Live(ctx, profile.URL) {
			zap.L().Debug("identifiers: dropping dead fallback link",
				zap.String("platform", string(s.platform)),
				zap.String("url", profile.URL),
			)
			continue
		}
		if _, exists := ids[s.platform]; !exists {
			ids[s.platform] = value
		}
		if !hasProfile(info, s.platform) {
			profiles = append(profiles, profile)
		}
	}
	return ids, profiles
}

// FromQuery applies the deterministic rules: an @handle query seeds
// instagram and twitter, then structured profiles override them, taking
// the username on handle-based platforms and the URL elsewhere. A
// handle-based profile with only a URL yields the URL's last path segment.
func FromQuery(query string, info *model.StructuredInfo) model.Identifiers {
	ids := model.Identifiers{}
	q := strings.TrimSpace(query)
	if handle, ok := strings.CutPrefix(q, "@"); ok && handle != "" && !strings.ContainsAny(handle, " \t") {
		ids[model.PlatformInstagram] = handle
		ids[model.PlatformTwitter] = handle
	}
	if info == nil {
		return ids
	}
	for _, p := range info.SocialProfiles {
		if p.Platform.HandleBased() {
			u := strings.TrimPrefix(strings.TrimSpace(p.Username), "@")
			if u == "" {
				u = handleFromURL(p.URL)
			}
			if u != "" {
				ids[p.Platform] = u
			}
			continue
		}
		if u := strings.TrimSpace(p.URL); u != "" {
			ids[p.Platform] = u
		}
	}
	return ids
}

// searchSites runs one site-restricted search per platform and keeps the
// first on-site hit of each.
func (e *Extractor) searchSites(ctx context.Context, name string) map[model.Platform]string {
	if name == "" || e.web == nil {
		return nil
	}
	var (
		mu    sync.Mutex
		found = make(map[model.Platform]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(fallbackSites))
	for _, s := range fallbackSites {
		g.Go(func() error {
			hits, err := e.web.SiteSearch(gctx, s.filter, name)
			if err != nil {
				if !sources.IsUnavailable(err) {
					zap.L().Warn("identifiers: site search failed", zap.String("site", s.filter), zap.Error(err))
				}
				return nil
			}
			if len(hits) == 0 {
				return nil
			}
			if value := parseHit(s, hits[0].URL); value != "" {
				mu.Lock()
				found[s.platform] = value
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return found
}

// parseHit turns a result URL into a handle or profile URL. Instagram and
// twitter yield the last path segment, tiktok an @segment when present,
// and the rest the URL itself.
func parseHit(s site, rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || !onHost(u.Hostname(), s.hosts) {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segs[len(segs)-1]

	switch s.platform {
	case model.PlatformInstagram, model.PlatformTwitter:
		return last
	case model.PlatformTikTok:
		if strings.HasPrefix(last, "@") {
			return last
		}
	}
	return rawURL
}

// handleFromURL returns the last path segment of a profile URL without a
// leading @, or "" when the URL has no path.
func handleFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	return strings.TrimPrefix(segs[len(segs)-1], "@")
}

func onHost(host string, hosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// fallbackProfile builds the profile entry for a discovered identifier,
// expanding bare handles to a platform URL.
func fallbackProfile(p model.Platform, value string) model.SocialProfile {
	profile := model.SocialProfile{Platform: p, URL: value, Source: SourceSearchFallback}
	if !strings.HasPrefix(value, "http") {
		profile.URL = "https://" + string(p) + ".com/" + value
	}
	if p.HandleBased() {
		profile.Username = strings.TrimPrefix(value, "@")
		if strings.HasPrefix(value, "http") {
			profile.Username = ""
		}
	}
	return profile
}

func hasProfile(info *model.StructuredInfo, p model.Platform) bool {
	if info == nil {
		return false
	}
	for _, sp := range info.SocialProfiles {
		if sp.Platform == p {
			return true
		}
	}
	return false
}

// Package aggregate merges the per-source results of one search into a
// Person: fill-empty basic info, one profile per platform, and photos
// that survived validation, verification and proxying.
package aggregate

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/faces"
	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/sources"
)

// SourceIdentityGraph tags profiles taken from identity-graph enrichment.
const SourceIdentityGraph = "identity_graph"

// ImageProxy re-hosts an image and returns its stable URL.
type ImageProxy interface {
	Proxy(ctx context.Context, rawURL string) (string, error)
}

// Deps are the capabilities aggregation draws on. Proxy, LLM and Images
// may be nil.
type Deps struct {
	Faces  faces.Service
	Proxy  ImageProxy
	LLM    llm.Completer
	Images sources.ImageSearch
}

// Config bounds photo handling.
type Config struct {
	PhotosPerPlatform  int
	ProxyConcurrency   int
	PhotoFallbackCount int
}

// Aggregator merges source results.
type Aggregator struct {
	deps Deps
	cfg  Config
}

// New creates an Aggregator with defaults of 10 photos per platform, 10
// concurrent proxies and 5 fallback photos.
func New(deps Deps, cfg Config) *Aggregator {
	if cfg.PhotosPerPlatform <= 0 {
		cfg.PhotosPerPlatform = 10
	}
	if cfg.ProxyConcurrency <= 0 {
		cfg.ProxyConcurrency = 10
	}
	if cfg.PhotoFallbackCount <= 0 {
		cfg.PhotoFallbackCount = 5
	}
	return &Aggregator{deps: deps, cfg: cfg}
}

// Aggregate builds a Person from in. Source failures have already been
// reduced to empty inputs, so the only error is a cancelled ctx.
func (a *Aggregator) Aggregate(ctx context.Context, in model.AggregateInput) (*model.Person, error) {
	start := time.Now()
	structured := in.Structured
	if structured == nil {
		structured = &model.StructuredInfo{}
	}

	basic := structured.BasicInfo
	if in.Candidate != nil && strings.TrimSpace(in.Candidate.Name) != "" {
		basic.Name = in.Candidate.Name
	}

	var photos []model.Photo
	if in.Candidate != nil && in.Candidate.ImageURL != "" {
		photos = append(photos, model.Photo{URL: in.Candidate.ImageURL, Source: model.PhotoSourceCandidateSelection})
	}
	photos = append(photos, structured.Photos...)

	profiles := append([]model.SocialProfile{}, structured.SocialProfiles...)
	profiles = append(profiles, in.FallbackProfiles...)

	if rec := in.Identity; rec != nil {
		basic.FillEmpty(model.BasicInfo{
			Name:       rec.FullName,
			Occupation: rec.JobTitle,
			Location:   rec.LocationName,
			Company:    rec.JobCompanyName,
			Education:  strings.Join(rec.Schools, ", "),
		})
		profiles = append(profiles, identityProfiles(rec)...)
	}

	var rawSources []model.RawSource
	for _, res := range in.Scrapes {
		if !res.OK() {
			continue
		}
		rawSources = append(rawSources, model.RawSource{Source: res.Source, Data: "Scraped " + res.Source + " data"})
		if res.PublicRecord() {
			continue
		}
		p := parseScrape(res)
		basic.FillEmpty(p.basic)
		if p.profile != nil {
			profiles = append(profiles, *p.profile)
		}
		photos = append(photos, capPhotos(p.photos, a.cfg.PhotosPerPlatform)...)
	}

	profiles = DedupProfiles(profiles)
	photos = DedupPhotos(photos)
	found := len(photos)

	photos = a.validatePhotos(ctx, photos)
	validated := len(photos)
	switch {
	case len(in.ReferencePhoto) == 0:
	case a.deps.Faces.CanCompare():
		photos = a.VerifyPhotos(ctx, photos, in.ReferencePhoto)
	default:
		zap.L().Info("aggregate: face comparison unavailable, photos left unverified", zap.Int("photos", len(photos)))
	}
	photos, profiles = a.proxy(ctx, photos, profiles)

	person := &model.Person{
		Query:            in.Query,
		BasicInfo:        basic,
		SocialProfiles:   profiles,
		Photos:           photos,
		NotableMentions:  nonNil(structured.NotableMentions),
		PublicRecords:    a.publicRecords(ctx, in.Scrapes),
		RawSources:       nonNil(rawSources),
		RelatedQuestions: []string{},
	}

	zap.L().Info("aggregate: complete",
		zap.String("query", in.Query),
		zap.Int("profiles", len(profiles)),
		zap.Int("photos_found", found),
		zap.Int("photos_validated", validated),
		zap.Int("photos_kept", len(photos)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		return person, eris.Wrap(err, "aggregate")
	}
	return person, nil
}

// identityProfiles turns the enrichment record's social URLs into
// profiles. Null URLs contribute nothing.
func identityProfiles(rec *model.IdentityRecord) []model.SocialProfile {
	var out []model.SocialProfile
	add := func(p model.Platform, url, user *string) {
		if url == nil || strings.TrimSpace(*url) == "" {
			return
		}
		sp := model.SocialProfile{Platform: p, URL: normalizeURL(*url), Source: SourceIdentityGraph}
		if user != nil {
			sp.Username = *user
		}
		out = append(out, sp)
	}
	add(model.PlatformLinkedIn, rec.LinkedInURL, rec.LinkedInUsername)
	add(model.PlatformTwitter, rec.TwitterURL, rec.TwitterUsername)
	add(model.PlatformFacebook, rec.FacebookURL, rec.FacebookUsername)
	return out
}

// normalizeURL adds the scheme PDL leaves off its profile URLs.
func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if u != "" && !strings.Contains(u, "://") {
		return "https://" + u
	}
	return u
}

// PhotoFallback searches images for a person with no photos at all and
// keeps up to PhotoFallbackCount that pass validation and proxying.
func (a *Aggregator) PhotoFallback(ctx context.Context, p *model.Person) {
	if p == nil || len(p.Photos) > 0 || a.deps.Images == nil {
		return
	}
	text := fallbackText(p)
	if text == "" {
		return
	}

	urls, err := a.deps.Images.SearchMany(ctx, text, a.cfg.PhotoFallbackCount)
	if err != nil {
		if !sources.IsUnavailable(err) {
			zap.L().Warn("aggregate: photo fallback search failed", zap.String("text", text), zap.Error(err))
		}
		return
	}

	photos := make([]model.Photo, 0, len(urls))
	for _, u := range urls {
		photos = append(photos, model.Photo{URL: u, Source: model.PhotoSourceGoogleImages})
	}
	photos = capPhotos(DedupPhotos(photos), a.cfg.PhotoFallbackCount)
	photos = a.validatePhotos(ctx, photos)
	photos, _ = a.proxy(ctx, photos, nil)

	zap.L().Info("aggregate: photo fallback",
		zap.String("text", text),
		zap.Int("results", len(urls)),
		zap.Int("kept", len(photos)),
	)
	p.Photos = photos
}

// fallbackText is the best available "name occupation location" string.
func fallbackText(p *model.Person) string {
	name := strings.TrimSpace(p.BasicInfo.Name)
	if name == "" {
		name = strings.TrimSpace(p.DisplayQuery())
	}
	if name == "" {
		return ""
	}
	parts := []string{name}
	for _, s := range []string{p.BasicInfo.Occupation, p.BasicInfo.Location} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

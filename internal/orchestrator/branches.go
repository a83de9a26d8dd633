package orchestrator

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/person-search/internal/model"
)

// scrapeOrder fixes the order scrape results are handed to aggregation,
// which decides first-wins ties.
var scrapeOrder = []model.Platform{
	model.PlatformInstagram,
	model.PlatformTwitter,
	model.PlatformLinkedIn,
	model.PlatformTikTok,
	model.PlatformFacebook,
	model.PlatformYouTube,
}

// scrape fetches every identified platform and the people-search sites.
// Social results come first in scrapeOrder, then public records.
func (o *Orchestrator) scrape(ctx context.Context, name, location string, ids model.Identifiers) []model.ScrapeResult {
	social := make([]model.ScrapeResult, len(scrapeOrder))
	var records []model.ScrapeResult

	var g errgroup.Group
	g.SetLimit(o.cfg.ScrapeConcurrency)
	for i, platform := range scrapeOrder {
		target := ids[platform]
		if target == "" || !o.deps.Social.Supports(platform) {
			continue
		}
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
			defer cancel()
			res := o.deps.Social.Fetch(tctx, platform, target)
			if res.Err != nil {
				zap.L().Warn("orchestrator: scrape failed",
					zap.String("platform", string(platform)),
					zap.String("target", target),
					zap.Error(res.Err),
				)
			}
			social[i] = res
			return nil
		})
	}

	// The scan has its own bounded pool, so it runs beside the social pool
	// rather than occupying one of its slots.
	var rg errgroup.Group
	rg.Go(func() error {
		tctx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
		defer cancel()
		records = o.deps.Records.Scan(tctx, name, location)
		return nil
	})
	_ = g.Wait()
	_ = rg.Wait()

	out := make([]model.ScrapeResult, 0, len(social)+len(records))
	for _, res := range social {
		if res.Source != "" {
			out = append(out, res)
		}
	}
	return append(out, records...)
}

// scanLocation prefers the selected candidate's location.
func scanLocation(cand *model.Candidate, structured *model.StructuredInfo) string {
	if cand != nil {
		if loc := cand.Location(); loc != "" {
			return loc
		}
	}
	if structured != nil {
		return structured.BasicInfo.Location
	}
	return ""
}

// answer composes the biography from what is known before scraping. A
// failure leaves the person without an answer.
func (o *Orchestrator) answer(
	ctx context.Context,
	query string,
	cand *model.Candidate,
	structured *model.StructuredInfo,
	fallback []model.SocialProfile,
) model.AnswerPatch {
	draft := &model.Person{
		Query:           query,
		BasicInfo:       structured.BasicInfo,
		SocialProfiles:  append(append([]model.SocialProfile{}, structured.SocialProfiles...), fallback...),
		NotableMentions: structured.NotableMentions,
	}
	var desc string
	if cand != nil {
		if strings.TrimSpace(cand.Name) != "" {
			draft.BasicInfo.Name = cand.Name
		}
		desc = cand.Description
	}

	patch, err := o.deps.Answers.Compose(ctx, draft, desc)
	if err != nil {
		zap.L().Warn("orchestrator: answer generation failed", zap.String("query", query), zap.Error(err))
		return model.AnswerPatch{}
	}
	return patch
}

// enrichKey prefers the candidate's identity-graph id, then a LinkedIn
// URL from the identifiers or the candidate.
func enrichKey(cand *model.Candidate, ids model.Identifiers) model.EnrichKey {
	if cand != nil && cand.PDLID != "" {
		return model.EnrichKey{ID: cand.PDLID}
	}
	if u := ids[model.PlatformLinkedIn]; u != "" {
		return model.EnrichKey{ProfileURL: u}
	}
	if cand != nil && cand.LinkedInURL != "" {
		return model.EnrichKey{ProfileURL: cand.LinkedInURL}
	}
	return model.EnrichKey{}
}

func (o *Orchestrator) enrich(ctx context.Context, key model.EnrichKey) *model.IdentityRecord {
	if key.ID == "" && key.ProfileURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	rec, err := o.deps.Identity.Enrich(ctx, key)
	if err != nil {
		logAdapter("identity enrichment", err)
		return nil
	}
	return rec
}

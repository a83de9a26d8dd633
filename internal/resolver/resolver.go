// Package resolver turns a name plus optional refinements into a ranked list
// of candidate people.
package resolver

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/person-search/internal/faces"
	"github.com/sells-group/person-search/internal/imagefetch"
	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/sources"
)

// ErrEmptyQuery rejects a blank query.
var ErrEmptyQuery = eris.New("resolver: query is required")

const (
	providerIdentity = "identity_graph"
	providerWeb      = "web_results"
	providerText     = "text_search"
)

// ReferenceStore keeps uploaded reference photos.
type ReferenceStore interface {
	PutReference(ctx context.Context, data []byte) (string, error)
}

// Config bounds the hydration and scoring pools.
type Config struct {
	// HydrateTopN candidates get a photo lookup. Default 5.
	HydrateTopN int
	// Concurrency caps photo lookups and face comparisons. Default 5.
	Concurrency int
}

// Deps are the capabilities a Resolver draws on. Any source may be a
// disabled adapter; LLM and Refs may be nil.
type Deps struct {
	Identity   sources.IdentityGraph
	WebResults sources.CandidateSearch
	Text       sources.TextSearch
	Images     sources.ImageSearch
	Faces      faces.Service
	LLM        llm.Completer
	Refs       ReferenceStore
}

// Response is a resolved candidate list plus the id of the stored
// reference photo, when one was uploaded.
type Response struct {
	Candidates       []model.Candidate `json:"candidates"`
	ReferencePhotoID string            `json:"referencePhotoId,omitempty"`
}

// Resolver finds and ranks candidates.
type Resolver struct {
	deps Deps
	cfg  Config
}

// New creates a Resolver.
func New(deps Deps, cfg Config) *Resolver {
	if cfg.HydrateTopN <= 0 {
		cfg.HydrateTopN = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &Resolver{deps: deps, cfg: cfg}
}

// Resolve returns the ranked candidates for query.
func (r *Resolver) Resolve(ctx context.Context, query string, refine model.Refinements, reference []byte) ([]model.Candidate, error) {
	resp, err := r.Lookup(ctx, query, refine, reference)
	if err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// Lookup runs the provider chain, hydrates photos, merges duplicates and
// ranks the result against reference. Provider failures only shrink the
// result; the error return is reserved for a blank query.
func (r *Resolver) Lookup(ctx context.Context, query string, refine model.Refinements, reference []byte) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()
	log := zap.L().With(zap.String("query", query))

	refined := refine.RefinedQuery(query)
	out := r.discover(ctx, query, refined, refine)

	found, ok := out.(Found)
	if !ok {
		log.Info("resolver: no candidates", zap.String("last_provider", out.provider()), zap.Duration("elapsed", time.Since(start)))
		return &Response{Candidates: []model.Candidate{}, ReferencePhotoID: r.storeReference(ctx, reference)}, nil
	}
	cands := found.Candidates
	model.UniqueIDs(cands)

	r.hydrate(ctx, cands)
	if found.Provider != providerIdentity {
		cands = r.dedup(ctx, cands)
	}
	cands = r.score(ctx, cands, reference)

	log.Info("resolver: candidates resolved",
		zap.String("provider", found.Provider),
		zap.Int("count", len(cands)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Response{Candidates: cands, ReferencePhotoID: r.storeReference(ctx, reference)}, nil
}

// discover walks the providers in order and stops at the first Found.
func (r *Resolver) discover(ctx context.Context, query, refined string, refine model.Refinements) Outcome {
	steps := []struct {
		name string
		run  func() ([]model.Candidate, error)
	}{
		{providerIdentity, func() ([]model.Candidate, error) {
			return r.deps.Identity.Search(ctx, model.IdentityQuery{Name: query, Refinements: refine})
		}},
		{providerWeb, func() ([]model.Candidate, error) {
			return r.deps.WebResults.Candidates(ctx, refined)
		}},
		{providerText, func() ([]model.Candidate, error) {
			return r.deps.Text.FindCandidates(ctx, refined)
		}},
	}

	var last Outcome = Empty{Provider: providerText}
	for _, step := range steps {
		cands, err := step.run()
		last = outcomeOf(step.name, cands, err)
		switch o := last.(type) {
		case Found:
			return o
		case Failed:
			logProviderError(o)
		case Empty:
			zap.L().Debug("resolver: provider empty, falling through", zap.String("provider", o.Provider))
		}
	}
	return last
}

func logProviderError(o Failed) {
	if sources.IsUnavailable(o.Err) {
		zap.L().Debug("resolver: provider unavailable", zap.String("provider", o.Provider))
		return
	}
	zap.L().Warn("resolver: provider failed", zap.String("provider", o.Provider), zap.Error(o.Err))
}

// hydrate finds and validates a photo for each of the top candidates.
// Workers write to distinct elements of cands.
func (r *Resolver) hydrate(ctx context.Context, cands []model.Candidate) {
	n := min(r.cfg.HydrateTopN, len(cands))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i := range n {
		g.Go(func() error {
			r.hydrateOne(ctx, &cands[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Resolver) hydrateOne(ctx context.Context, c *model.Candidate) {
	searched := false
	if c.ImageURL == "" {
		text := c.Name
		if company := c.Company(); company != "" {
			text += " " + company
		}
		url, err := r.deps.Images.SearchOne(ctx, text)
		if err != nil {
			if !sources.IsUnavailable(err) {
				zap.L().Warn("resolver: photo lookup failed", zap.String("candidate", c.ID), zap.Error(err))
			}
			return
		}
		if url == "" {
			return
		}
		c.ImageURL = url
		searched = true
	}

	if r.deps.Faces.ValidateImage(ctx, c.ImageURL) {
		c.HasFaceImage = true
		return
	}
	// A looked-up photo without a face is discarded; a provider's own
	// photo is kept but not trusted for scoring.
	if searched {
		c.ImageURL = ""
	}
}

// score sets every candidate's similarity and rank. Only candidates with a
// validated face photo are compared; the rest score 0. Without a reference
// all scores are 0 and rank is discovery order.
func (r *Resolver) score(ctx context.Context, cands []model.Candidate, reference []byte) []model.Candidate {
	scores := make([]float64, len(cands))
	if len(reference) > 0 {
		var g errgroup.Group
		g.SetLimit(r.cfg.Concurrency)
		for i := range cands {
			if !cands[i].HasFaceImage || cands[i].ImageURL == "" {
				continue
			}
			g.Go(func() error {
				scores[i] = r.deps.Faces.Compare(ctx, reference, cands[i].ImageURL)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i := range cands {
		s := scores[i]
		cands[i].SimilarityScore = &s
	}
	slices.SortStableFunc(cands, func(a, b model.Candidate) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	for i := range cands {
		cands[i].Rank = i + 1
	}
	return cands
}

// storeReference persists the reference photo and returns its id, or ""
// when there is nothing to store or the write fails.
func (r *Resolver) storeReference(ctx context.Context, reference []byte) string {
	if len(reference) == 0 || r.deps.Refs == nil {
		return ""
	}
	data := reference
	if jpg, err := imagefetch.ToJPEG(reference); err == nil {
		data = jpg
	}
	id, err := r.deps.Refs.PutReference(ctx, data)
	if err != nil {
		zap.L().Warn("resolver: store reference photo", zap.Error(err))
		return ""
	}
	return id
}

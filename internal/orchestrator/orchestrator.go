// Package orchestrator runs a full person search: cache lookup, text
// search, identifier discovery, the scrape/answer/enrich fan-out,
// aggregation and persistence.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/sources"
	"github.com/sells-group/person-search/internal/store"
)

// States of a search, used as span and log names.
const (
	StateNormalize     = "normalize"
	StateCacheLookup   = "cache_lookup"
	StateSearch        = "search"
	StateIdentifiers   = "extract_identifiers"
	StateParallel      = "parallel"
	StateScrape        = "scrape"
	StateAnswerGen     = "answer_gen"
	StateEnrich        = "enrich"
	StateAggregate     = "aggregate"
	StatePhotoFallback = "photo_fallback"
	StatePersist       = "persist"
)

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = eris.New("orchestrator: query is empty")
	// ErrPersistence marks a search whose result could not be stored.
	// Search still returns the computed person alongside it.
	ErrPersistence = eris.New("orchestrator: persist person")
)

// Store is the person cache.
type Store interface {
	GetPerson(ctx context.Context, cacheKey string) (*model.Person, error)
	PutPerson(ctx context.Context, p *model.Person) error
}

// ReferenceLoader loads an uploaded reference photo.
type ReferenceLoader interface {
	GetReference(ctx context.Context, id string) ([]byte, error)
}

// IdentifierExtractor resolves the platform identifiers to scrape.
type IdentifierExtractor interface {
	Extract(ctx context.Context, query string, info *model.StructuredInfo) (model.Identifiers, []model.SocialProfile)
}

// Answerer composes the biography for a partially built person.
type Answerer interface {
	Compose(ctx context.Context, p *model.Person, candidateDesc string) (model.AnswerPatch, error)
}

// Aggregator merges branch results and backfills photos.
type Aggregator interface {
	Aggregate(ctx context.Context, in model.AggregateInput) (*model.Person, error)
	PhotoFallback(ctx context.Context, p *model.Person)
}

// Deps are the collaborators of a search. References may be nil.
type Deps struct {
	Store       Store
	Text        sources.TextSearch
	Identity    sources.IdentityGraph
	Social      sources.SocialScraper
	Records     sources.PublicRecordScanner
	Identifiers IdentifierExtractor
	Answers     Answerer
	Aggregator  Aggregator
	References  ReferenceLoader
}

// Config bounds a search.
type Config struct {
	ScrapeConcurrency int
	AdapterTimeout    time.Duration
}

// Orchestrator runs searches.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	tracer trace.Tracer
}

// New creates an Orchestrator. Zero config values default to 6 concurrent
// scrapes and a 20s adapter timeout.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.ScrapeConcurrency <= 0 {
		cfg.ScrapeConcurrency = 6
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 20 * time.Second
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/sells-group/person-search/internal/orchestrator"),
	}
}

// branches holds the results of the parallel fan-out. Each field is
// written by exactly one branch.
type branches struct {
	scrapes  []model.ScrapeResult
	patch    model.AnswerPatch
	identity *model.IdentityRecord
}

// Search returns the aggregated person for req, from cache when possible.
// Source failures degrade to empty values. A storage failure returns the
// computed person together with an error wrapping ErrPersistence.
func (o *Orchestrator) Search(ctx context.Context, req model.SearchRequest) (*model.Person, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	ctx, span := o.tracer.Start(ctx, "orchestrator.search", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	log := zap.L().With(zap.String("query", query))
	start := time.Now()
	cand := req.Candidate

	var cacheKey string
	o.state(ctx, StateNormalize, func(context.Context) {
		cacheKey = CacheKey(Normalize(query), cand)
	})
	log = log.With(zap.String("cache_key", cacheKey))

	var reference []byte
	if req.ReferencePhotoID != "" {
		log.Info("orchestrator: reference photo supplied, bypassing cache")
		reference = o.loadReference(ctx, req.ReferencePhotoID)
	} else {
		var cached *model.Person
		o.state(ctx, StateCacheLookup, func(ctx context.Context) {
			cached = o.lookup(ctx, cacheKey)
		})
		if cached != nil {
			log.Info("orchestrator: cache hit", zap.String("person_id", cached.ID))
			return cached, nil
		}
	}

	searchName := query
	if cand != nil && strings.TrimSpace(cand.Name) != "" {
		searchName = cand.Name
	}

	var structured *model.StructuredInfo
	o.state(ctx, StateSearch, func(ctx context.Context) {
		structured = o.textSearch(ctx, searchName)
	})

	var (
		ids      model.Identifiers
		fallback []model.SocialProfile
	)
	o.state(ctx, StateIdentifiers, func(ctx context.Context) {
		ids, fallback = o.deps.Identifiers.Extract(ctx, query, structured)
	})

	var br branches
	o.state(ctx, StateParallel, func(ctx context.Context) {
		br = o.fanOut(ctx, query, searchName, cand, structured, ids, fallback)
	})

	var (
		person *model.Person
		aggErr error
	)
	o.state(ctx, StateAggregate, func(ctx context.Context) {
		person, aggErr = o.deps.Aggregator.Aggregate(ctx, model.AggregateInput{
			Query:            cacheKey,
			Candidate:        cand,
			Structured:       structured,
			Identity:         br.identity,
			Scrapes:          br.scrapes,
			FallbackProfiles: fallback,
			ReferencePhoto:   reference,
		})
	})
	if aggErr != nil {
		log.Error("orchestrator: failed", zap.String("state", StateAggregate), zap.String("trace", eris.ToString(aggErr, true)))
		return nil, eris.Wrap(aggErr, "orchestrator: aggregate")
	}
	person.CacheKey = cacheKey
	applyAnswer(person, br.patch)

	o.state(ctx, StatePhotoFallback, func(ctx context.Context) {
		o.deps.Aggregator.PhotoFallback(ctx, person)
	})

	var putErr error
	o.state(ctx, StatePersist, func(ctx context.Context) {
		putErr = o.deps.Store.PutPerson(ctx, person)
	})
	if putErr != nil {
		log.Error("orchestrator: persist failed, returning unsaved person", zap.Error(putErr))
		return person, eris.Wrapf(ErrPersistence, "orchestrator: %s: %v", cacheKey, putErr)
	}

	log.Info("orchestrator: done",
		zap.String("person_id", person.ID),
		zap.Int("profiles", len(person.SocialProfiles)),
		zap.Int("photos", len(person.Photos)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return person, nil
}

// state runs fn inside a span named after the state and logs its
// duration.
func (o *Orchestrator) state(ctx context.Context, name string, fn func(context.Context)) {
	ctx, span := o.tracer.Start(ctx, "orchestrator."+name)
	defer span.End()
	start := time.Now()
	fn(ctx)
	zap.L().Info("orchestrator: state complete",
		zap.String("state", name),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (o *Orchestrator) loadReference(ctx context.Context, id string) []byte {
	if o.deps.References == nil {
		return nil
	}
	data, err := o.deps.References.GetReference(ctx, id)
	if err != nil {
		zap.L().Warn("orchestrator: reference photo unavailable, continuing unverified",
			zap.String("reference_photo_id", id), zap.Error(err))
		return nil
	}
	return data
}

// lookup treats every store error as a miss.
func (o *Orchestrator) lookup(ctx context.Context, cacheKey string) *model.Person {
	p, err := o.deps.Store.GetPerson(ctx, cacheKey)
	switch {
	case err == nil:
		return p
	case errors.Is(err, store.ErrNotFound):
	default:
		zap.L().Warn("orchestrator: cache lookup failed", zap.String("cache_key", cacheKey), zap.Error(err))
	}
	return nil
}

// textSearch queries free text and falls back to explicit extraction when
// the answer arrives without structure. It never returns nil.
func (o *Orchestrator) textSearch(ctx context.Context, name string) *model.StructuredInfo {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	res, err := o.deps.Text.Query(ctx, name)
	if err != nil {
		logAdapter("text search", err)
	}
	if res != nil && res.Structured != nil {
		return res.Structured
	}
	if res == nil || strings.TrimSpace(res.Content) == "" {
		return &model.StructuredInfo{}
	}

	info, err := o.deps.Text.ExtractStructured(ctx, name, res.Content)
	if err != nil || info == nil {
		logAdapter("structured extraction", err)
		return &model.StructuredInfo{}
	}
	return info
}

func applyAnswer(p *model.Person, patch model.AnswerPatch) {
	if patch.RelatedQuestions != nil {
		p.RelatedQuestions = patch.RelatedQuestions
	}
	if patch.Answer == "" {
		return
	}
	p.Answer = patch.Answer
	at := patch.GeneratedAt
	p.AnswerGeneratedAt = &at
}

func logAdapter(what string, err error) {
	if err == nil {
		return
	}
	if sources.IsUnavailable(err) {
		zap.L().Debug("orchestrator: "+what+" not configured", zap.Error(err))
		return
	}
	zap.L().Warn("orchestrator: "+what+" failed", zap.Error(err))
}

// fanOut runs the scrape, answer and enrichment branches. They share no
// mutable state and never fail; each degrades to its zero value.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	query, searchName string,
	cand *model.Candidate,
	structured *model.StructuredInfo,
	ids model.Identifiers,
	fallback []model.SocialProfile,
) branches {
	var (
		br branches
		g  errgroup.Group
	)
	g.Go(func() error {
		o.state(ctx, StateScrape, func(ctx context.Context) {
			br.scrapes = o.scrape(ctx, searchName, scanLocation(cand, structured), ids)
		})
		return nil
	})
	g.Go(func() error {
		o.state(ctx, StateAnswerGen, func(ctx context.Context) {
			br.patch = o.answer(ctx, query, cand, structured, fallback)
		})
		return nil
	})
	g.Go(func() error {
		o.state(ctx, StateEnrich, func(ctx context.Context) {
			br.identity = o.enrich(ctx, enrichKey(cand, ids))
		})
		return nil
	})
	_ = g.Wait()
	return br
}

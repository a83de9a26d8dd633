package main

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/aggregate"
	"github.com/sells-group/person-search/internal/answer"
	"github.com/sells-group/person-search/internal/faces"
	"github.com/sells-group/person-search/internal/followup"
	"github.com/sells-group/person-search/internal/identifiers"
	"github.com/sells-group/person-search/internal/imagefetch"
	"github.com/sells-group/person-search/internal/imagestore"
	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/orchestrator"
	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/internal/resolver"
	"github.com/sells-group/person-search/internal/scrape"
	"github.com/sells-group/person-search/internal/sources"
	"github.com/sells-group/person-search/internal/store"
	anthropicpkg "github.com/sells-group/person-search/pkg/anthropic"
	"github.com/sells-group/person-search/pkg/apify"
	"github.com/sells-group/person-search/pkg/firecrawl"
	"github.com/sells-group/person-search/pkg/google"
	"github.com/sells-group/person-search/pkg/jina"
	"github.com/sells-group/person-search/pkg/pdl"
	"github.com/sells-group/person-search/pkg/perplexity"
	"github.com/sells-group/person-search/pkg/serpapi"
)

// appEnv holds every service a command may need. Callers should defer
// env.Close().
type appEnv struct {
	Store        store.PersonStore
	Images       *imagestore.Store
	Resolver     *resolver.Resolver
	Orchestrator *orchestrator.Orchestrator
	Answers      *answer.Service
	Followup     *followup.Service // nil without an OpenAI key

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

func (e *appEnv) onClose(fn func() error) { e.closers = append(e.closers, fn) }

// initEnv validates the config for mode and builds all services. Adapters
// whose credentials are missing are replaced by disabled ones.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	env := &appEnv{}
	ok := false
	defer func() {
		if !ok {
			env.Close()
		}
	}()

	st, chats, err := initStore(ctx, env)
	if err != nil {
		return nil, err
	}
	env.Store = st

	retry := resilience.RetryFromConfig(cfg.Resilience)
	breaker := resilience.BreakerFromConfig(cfg.Resilience)
	timeout := time.Duration(cfg.Pipeline.AdapterTimeoutSecs) * time.Second

	completer := llm.New(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.HaikuModel, cfg.Anthropic.SonnetModel)

	fetch := imagefetch.New(imagefetch.WithMinBytes(cfg.Pipeline.MinImageBytes))
	images, err := initImageStore(ctx, env, fetch)
	if err != nil {
		return nil, err
	}
	env.Images = images

	backend, err := faces.NewBackend(ctx, cfg.Faces.Backend, cfg.AWS.Region)
	if err != nil {
		return nil, eris.Wrap(err, "init face backend")
	}
	if c, isCloser := backend.(io.Closer); isCloser {
		env.onClose(c.Close)
	}
	verifier := faces.NewVerifier(backend, fetch, cfg.Faces.Threshold)

	a := initAdapters(ctx, completer, retry, breaker, timeout)

	env.Resolver = resolver.New(resolver.Deps{
		Identity:   a.identity,
		WebResults: a.candidates,
		Text:       a.text,
		Images:     a.images,
		Faces:      verifier,
		LLM:        completer,
		Refs:       images,
	}, resolver.Config{HydrateTopN: cfg.Pipeline.HydrateTopN, Concurrency: cfg.Pipeline.HydrateTopN})

	env.Answers = answer.New(completer, st)

	agg := aggregate.New(aggregate.Deps{
		Faces:  verifier,
		Proxy:  images,
		LLM:    completer,
		Images: a.images,
	}, aggregate.Config{
		PhotosPerPlatform:  cfg.Pipeline.PhotosPerPlatform,
		ProxyConcurrency:   cfg.Pipeline.ProxyConcurrency,
		PhotoFallbackCount: cfg.Pipeline.PhotoFallbackCount,
	})

	env.Orchestrator = orchestrator.New(orchestrator.Deps{
		Store:       st,
		Text:        a.text,
		Identity:    a.identity,
		Social:      a.social,
		Records:     a.records,
		Identifiers: identifiers.New(a.web, identifiers.NewLinkChecker(nil)),
		Answers:     env.Answers,
		Aggregator:  agg,
		References:  images,
	}, orchestrator.Config{
		ScrapeConcurrency: cfg.Pipeline.ScrapeConcurrency,
		AdapterTimeout:    timeout,
	})

	if cfg.OpenAI.Key != "" {
		env.Followup = followup.New(cfg.OpenAI.Key, cfg.OpenAI.Model, "", st, followup.WithChatStore(chats))
	} else {
		zap.L().Info("PERSON_OPENAI_KEY not set, follow-up questions disabled")
	}

	ok = true
	return env, nil
}

// initStore opens the configured database. Chats always go to the database;
// only person lookups pass through the redis cache.
func initStore(ctx context.Context, env *appEnv) (store.PersonStore, store.ChatStore, error) {
	var (
		st    store.PersonStore
		chats store.ChatStore
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "person-search.db"
		}
		s, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		st, chats = s, s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, nil, err
		}
		st, chats = s, s
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	env.onClose(st.Close)

	if err := st.Migrate(ctx); err != nil {
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Store.RedisAddr == "" {
		return st, chats, nil
	}
	rdb, err := store.NewRedisClient(ctx, cfg.Store.RedisAddr)
	if err != nil {
		zap.L().Warn("redis unavailable, running without person cache", zap.Error(err))
		return st, chats, nil
	}
	env.onClose(rdb.Close)
	zap.L().Info("redis person cache enabled", zap.String("addr", cfg.Store.RedisAddr))
	return store.NewCachedStore(st, rdb, 24*time.Hour), chats, nil
}

func initImageStore(ctx context.Context, env *appEnv, fetch *imagefetch.Fetcher) (*imagestore.Store, error) {
	opts := []imagestore.Option{imagestore.WithPrefixes(cfg.GCP.ProxyPrefix, cfg.GCP.RefPrefix)}
	if cfg.GCP.Bucket == "" {
		zap.L().Info("PERSON_GCP_BUCKET not set, images are not proxied and reference photos stay in memory")
		return imagestore.New(nil, fetch, opts...), nil
	}
	gcs, err := imagestore.NewGCS(ctx, cfg.GCP.Bucket, cfg.GCP.PublicBaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init gcs")
	}
	env.onClose(gcs.Close)
	return imagestore.New(gcs, fetch, opts...), nil
}

// adapters are the source capabilities, each real or disabled.
type adapters struct {
	text       sources.TextSearch
	identity   sources.IdentityGraph
	candidates sources.CandidateSearch
	images     sources.ImageSearch
	web        sources.WebSearch
	social     sources.SocialScraper
	records    sources.PublicRecordScanner
}

func initAdapters(ctx context.Context, completer llm.Completer, retry resilience.RetryConfig, breaker resilience.CircuitBreakerConfig, timeout time.Duration) adapters {
	a := adapters{
		text:       sources.DisabledTextSearch(),
		identity:   sources.DisabledIdentityGraph(),
		candidates: sources.DisabledCandidateSearch(),
		images:     sources.DisabledImageSearch(),
		web:        sources.DisabledWebSearch(),
		social:     sources.DisabledSocialScraper(),
		records:    sources.DisabledPublicRecordScanner(),
	}
	log := zap.L()

	if cfg.Perplexity.Key != "" {
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model))
		a.text = sources.NewPerplexity(client, completer, retry)
	} else {
		log.Debug("PERSON_PERPLEXITY_KEY not set, text search disabled")
	}

	if cfg.PDL.Key != "" {
		a.identity = sources.NewPDL(pdl.NewClient(cfg.PDL.Key, pdl.WithBaseURL(cfg.PDL.BaseURL)), retry)
	} else {
		log.Debug("PERSON_PDL_KEY not set, identity graph disabled")
	}

	var imageChain sources.FirstImages
	var webChain sources.FirstWeb
	if cfg.SerpAPI.Key != "" {
		serp := sources.NewSerpAPI(serpapi.NewClient(cfg.SerpAPI.Key,
			serpapi.WithBaseURL(cfg.SerpAPI.BaseURL),
			serpapi.WithRateLimit(cfg.SerpAPI.RPS)))
		a.candidates = serp
		imageChain = append(imageChain, serp)
		webChain = append(webChain, serp)
	} else {
		log.Debug("PERSON_SERPAPI_KEY not set, web candidates disabled")
	}
	if cfg.Google.Key != "" && cfg.Google.CX != "" {
		gc, err := google.NewClient(ctx, cfg.Google.Key, cfg.Google.CX, google.WithBaseURL(cfg.Google.BaseURL))
		if err != nil {
			log.Warn("custom search client unavailable, google images disabled", zap.Error(err))
		} else {
			imageChain = append(imageChain, sources.NewGoogleImages(gc))
		}
	}
	if len(imageChain) > 0 {
		a.images = imageChain
	}

	// The chain always has the local fetcher; hosted readers join when
	// configured.
	scrapers := []scrape.Scraper{scrape.NewLocalScraper(nil)}
	if cfg.Jina.Key != "" {
		jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
		if cfg.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		jc := jina.NewClient(cfg.Jina.Key, jinaOpts...)
		webChain = append(webChain, sources.NewJinaSearch(jc))
		scrapers = append(scrapers, scrape.NewJinaAdapter(jc, breaker))
	}
	if cfg.Firecrawl.Key != "" {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)), breaker))
	}
	if len(webChain) > 0 {
		a.web = webChain
	}

	sites, err := sources.LoadSites(nil)
	if err != nil {
		log.Warn("people search catalog invalid, public records disabled", zap.Error(err))
	} else {
		a.records = sources.NewPeopleSearch(scrape.NewChain(scrapers...), sites)
	}

	if cfg.Apify.Token != "" {
		catalog, err := sources.LoadActorCatalog(nil)
		if err != nil {
			log.Warn("actor catalog invalid, social scraping disabled", zap.Error(err))
		} else {
			client := apify.NewClient(cfg.Apify.Token,
				apify.WithBaseURL(cfg.Apify.BaseURL),
				apify.WithRunTimeout(time.Duration(cfg.Apify.TimeoutSecs)*time.Second),
				apify.WithRateLimit(cfg.Apify.RPS))
			a.social = sources.NewApify(client, catalog, timeout)
		}
	} else {
		log.Debug("PERSON_APIFY_TOKEN not set, social scraping disabled")
	}

	return a
}

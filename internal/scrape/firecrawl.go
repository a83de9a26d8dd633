package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/pkg/firecrawl"
)

// People-search result lists render client-side.
const firecrawlWaitMs = 2000

// Record sites only list US residents; foreign egress gets consent walls.
var recordLocation = firecrawl.Location{Country: "US"}

// FirecrawlAdapter renders pages through Firecrawl. It is the last reader
// in the chain.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	breaker *resilience.CircuitBreaker
}

// NewFirecrawlAdapter wraps client with its own breaker.
func NewFirecrawlAdapter(client firecrawl.Client, cfg resilience.CircuitBreakerConfig) *FirecrawlAdapter {
	return &FirecrawlAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker("firecrawl", cfg),
	}
}

func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

func (f *FirecrawlAdapter) Supports(_ string) bool {
	return f.breaker.State() != resilience.CircuitOpen
}

// Scrape renders targetURL as markdown.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*Result, error) {
		doc, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:             targetURL,
			OnlyMainContent: true,
			WaitFor:         firecrawlWaitMs,
			BlockAds:        true,
			Location:        &recordLocation,
		})
		if err != nil {
			return nil, eris.Wrap(err, "firecrawl: scrape")
		}
		if IsThin(doc.Markdown) {
			return nil, eris.Wrap(errThinContent, "firecrawl")
		}
		md := doc.Metadata
		return &Result{
			Page: model.Page{
				URL:        firstNonEmpty(md.FinalURL(), targetURL),
				Title:      md.Title,
				Markdown:   doc.Markdown,
				StatusCode: md.StatusCode,
			},
			Source: "firecrawl",
		}, nil
	})
}

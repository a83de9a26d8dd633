package scrape

import (
	"context"

	"github.com/sells-group/person-search/internal/model"
)

// Result is one fetched page and the scraper that produced it.
type Result struct {
	Page   model.Page
	Source string
}

// Scraper fetches one URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	// Supports is false while the scraper cannot take work, for example
	// when its circuit is open.
	Supports(url string) bool
}

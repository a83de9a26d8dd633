// Package scrape fetches people-search pages through an ordered chain of
// readers: a direct fetch, then Jina Reader, then Firecrawl.
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Chain tries scrapers in order and returns the first usable page.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain. Nil scrapers are skipped so disabled readers
// can be passed straight from wiring.
func NewChain(scrapers ...Scraper) *Chain {
	c := &Chain{}
	for _, s := range scrapers {
		if s != nil {
			c.scrapers = append(c.scrapers, s)
		}
	}
	return c
}

// Len returns the number of scrapers in the chain.
func (c *Chain) Len() int { return len(c.scrapers) }

// Scrape fetches targetURL with the first scraper that succeeds.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		res, err := s.Scrape(ctx, targetURL)
		if err == nil && res != nil {
			return res, nil
		}
		if err != nil {
			zap.L().Debug("scrape: reader failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all readers failed")
	}
	return nil, eris.Errorf("scrape: no reader available for %s", targetURL)
}

// ScrapeAll fetches urls with at most limit in flight. The returned slice
// is index-aligned with urls; failed entries are nil.
func (c *Chain) ScrapeAll(ctx context.Context, urls []string, limit int) []*Result {
	out := make([]*Result, len(urls))
	if limit <= 0 {
		limit = len(urls)
	}

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, u := range urls {
		g.Go(func() error {
			res, err := c.Scrape(ctx, u)
			if err != nil {
				zap.L().Debug("scrape: page skipped", zap.String("url", u), zap.Error(err))
				return nil
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

package sources

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/pkg/google"
)

// cseMaxNum is the Custom Search page size limit.
const cseMaxNum = 10

// GoogleImages serves image lookups from the Custom Search JSON API,
// restricted to face images with safe search on.
type GoogleImages struct {
	client google.Client
}

// NewGoogleImages wraps client.
func NewGoogleImages(client google.Client) *GoogleImages {
	return &GoogleImages{client: client}
}

// SearchOne returns the first face image for text.
func (g *GoogleImages) SearchOne(ctx context.Context, text string) (string, error) {
	urls, err := g.SearchMany(ctx, text, 1)
	if err != nil || len(urls) == 0 {
		return "", err
	}
	return urls[0], nil
}

// SearchMany returns up to count face image URLs for text.
func (g *GoogleImages) SearchMany(ctx context.Context, text string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	resp, err := g.client.ImageSearch(ctx, google.ImageSearchRequest{
		Query:   text,
		Num:     min(count, cseMaxNum),
		ImgType: "face",
		Safe:    "active",
	})
	if err != nil {
		return nil, eris.Wrap(err, "google: image search")
	}
	urls := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Link != "" && len(urls) < count {
			urls = append(urls, it.Link)
		}
	}
	return urls, nil
}

// FirstImages tries each ImageSearch in order and returns the first
// non-empty answer. It fails only when every provider failed.
type FirstImages []ImageSearch

// SearchOne implements ImageSearch.
func (f FirstImages) SearchOne(ctx context.Context, text string) (string, error) {
	var lastErr error = ErrUnavailable
	for _, s := range f {
		u, err := s.SearchOne(ctx, text)
		if err != nil {
			lastErr = err
			logDegraded("image search one", err)
			continue
		}
		if u != "" {
			return u, nil
		}
		lastErr = nil
	}
	return "", lastErr
}

// SearchMany implements ImageSearch.
func (f FirstImages) SearchMany(ctx context.Context, text string, count int) ([]string, error) {
	var lastErr error = ErrUnavailable
	for _, s := range f {
		urls, err := s.SearchMany(ctx, text, count)
		if err != nil {
			lastErr = err
			logDegraded("image search many", err)
			continue
		}
		if len(urls) > 0 {
			return urls, nil
		}
		lastErr = nil
	}
	return nil, lastErr
}

func logDegraded(op string, err error) {
	if IsUnavailable(err) {
		zap.L().Debug("sources: adapter not configured", zap.String("op", op))
		return
	}
	zap.L().Warn("sources: adapter failed", zap.String("op", op), zap.Error(err))
}

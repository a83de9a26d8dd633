// Package google runs face image lookups through the Custom Search JSON
// API, using the generated customsearch/v1 service.
package google

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// maxNum is the API's per-request result cap.
const maxNum = 10

// Client performs Custom Search image lookups.
type Client interface {
	ImageSearch(ctx context.Context, req ImageSearchRequest) (*ImageSearchResponse, error)
}

// ImageSearchRequest configures an image search.
type ImageSearchRequest struct {
	Query   string
	Num     int    // 1..10
	ImgType string // e.g. "face"
	Safe    string // "active" or "off"
}

// ImageSearchResponse lists the image hits.
type ImageSearchResponse struct {
	Items []ImageItem
}

// ImageItem is one image result.
type ImageItem struct {
	Title       string
	Link        string
	DisplayLink string
	Mime        string
	Image       ImageMeta
}

// ImageMeta describes the image and the page it came from.
type ImageMeta struct {
	ContextLink   string
	Height        int
	Width         int
	ThumbnailLink string
}

// StatusCode returns the HTTP status of a Custom Search API error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// Option configures the client.
type Option func(*settings)

type settings struct {
	endpoint string
}

// WithBaseURL points the service at another endpoint, such as a test
// server. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.endpoint = u }
}

type cseClient struct {
	cse *customsearch.CseService
	cx  string
}

// NewClient creates a Custom Search client for the engine cx.
func NewClient(ctx context.Context, apiKey, cx string, opts ...Option) (Client, error) {
	var s settings
	for _, o := range opts {
		o(&s)
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if s.endpoint != "" {
		if !strings.HasSuffix(s.endpoint, "/") {
			s.endpoint += "/"
		}
		clientOpts = append(clientOpts, option.WithEndpoint(s.endpoint))
	}
	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "google: new customsearch service")
	}
	return &cseClient{cse: svc.Cse, cx: cx}, nil
}

func (c *cseClient) ImageSearch(ctx context.Context, in ImageSearchRequest) (*ImageSearchResponse, error) {
	num := in.Num
	if num <= 0 || num > maxNum {
		num = maxNum
	}
	call := c.cse.List().
		Cx(c.cx).
		Q(in.Query).
		SearchType("image").
		Num(int64(num))
	if in.ImgType != "" {
		call = call.ImgType(in.ImgType)
	}
	if in.Safe != "" {
		call = call.Safe(in.Safe)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "google: image search %q", in.Query)
	}

	out := &ImageSearchResponse{Items: make([]ImageItem, 0, len(res.Items))}
	for _, it := range res.Items {
		if it == nil {
			continue
		}
		item := ImageItem{Title: it.Title, Link: it.Link, DisplayLink: it.DisplayLink, Mime: it.Mime}
		if it.Image != nil {
			item.Image = ImageMeta{
				ContextLink:   it.Image.ContextLink,
				Height:        int(it.Image.Height),
				Width:         int(it.Image.Width),
				ThumbnailLink: it.Image.ThumbnailLink,
			}
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

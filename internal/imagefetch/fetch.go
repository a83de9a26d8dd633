// Package imagefetch downloads remote images with the checks the pipeline
// applies before anything is shown or compared: reachable, served as
// image/*, and larger than a minimum size.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
	acceptHeader = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	maxBodyBytes = 15 << 20
)

var (
	// ErrNotImage is returned when the response Content-Type is not image/*.
	ErrNotImage = eris.New("imagefetch: not an image")
	// ErrTooSmall is returned when the body is below the minimum size.
	ErrTooSmall = eris.New("imagefetch: image too small")
)

// StatusError is a non-200 response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imagefetch: status %d for %s", e.StatusCode, e.URL)
}

// Image is a downloaded image body.
type Image struct {
	URL         string
	ContentType string
	Data        []byte
}

// Fetcher downloads images.
type Fetcher struct {
	http     *http.Client
	minBytes int
	attempts uint
	delay    time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMinBytes sets the smallest accepted body size.
func WithMinBytes(n int) Option {
	return func(f *Fetcher) { f.minBytes = n }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.http = hc }
}

// WithRetry sets the attempt count and base delay for transient failures.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.delay = delay
	}
}

// New creates a Fetcher. The default minimum size is 1 KiB.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:     &http.Client{Timeout: 15 * time.Second},
		minBytes: 1024,
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads rawURL. Rate-limit and 5xx responses are retried with
// backoff; other failures return immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if rawURL == "" {
		return nil, eris.New("imagefetch: empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "imagefetch: build request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	img, err := retry.DoWithData(
		func() (*Image, error) { return f.once(req) },
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.MaxJitter(f.delay/2),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Debug("imagefetch: retrying", zap.Uint("attempt", n+1), zap.String("url", rawURL), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (f *Fetcher) once(req *http.Request) (*Image, error) {
	rawURL := req.URL.String()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "imagefetch: get")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(ct, "image/") {
		return nil, eris.Wrapf(ErrNotImage, "content-type %q", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "imagefetch: read body")
	}
	if len(data) < f.minBytes {
		return nil, eris.Wrapf(ErrTooSmall, "%d bytes", len(data))
	}
	return &Image{URL: rawURL, ContentType: ct, Data: data}, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrNotImage) || errors.Is(err, ErrTooSmall) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/pkg/jina"
)

// errThinContent trips the breaker when the reader returned a block page
// instead of content.
var errThinContent = eris.New("reader returned no usable content")

// JinaAdapter reads pages through Jina Reader behind a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
	opts    []jina.ReadOption
}

// NewJinaAdapter wraps client. Zero-valued breaker fields take defaults.
func NewJinaAdapter(client jina.Client, cfg resilience.CircuitBreakerConfig, opts ...jina.ReadOption) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker("jina", cfg),
		opts:    opts,
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports is false while the breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape reads targetURL and rejects challenge pages.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := j.client.Read(ctx, targetURL, j.opts...)
		if err != nil {
			return nil, eris.Wrap(err, "jina: read")
		}
		if resp.Code != 0 && resp.Code != 200 {
			return nil, eris.Wrapf(errThinContent, "jina: upstream status %d", resp.Code)
		}
		if IsThin(resp.Data.Content) {
			return nil, eris.Wrap(errThinContent, "jina")
		}
		return &Result{
			Page: model.Page{
				URL:        firstNonEmpty(resp.Data.URL, targetURL),
				Title:      resp.Data.Title,
				Markdown:   resp.Data.Content,
				StatusCode: 200,
			},
			Source: "jina",
		}, nil
	})
}

var challengeMarkers = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
	"verify you are human",
}

// IsThin reports whether rendered page text is too short to hold a result
// list, or is a short bot-challenge page.
func IsThin(content string) bool {
	content = strings.TrimSpace(content)
	if len(content) < 100 {
		return true
	}
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

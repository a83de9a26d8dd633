package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/pkg/firecrawl"
	fcmocks "github.com/sells-group/person-search/pkg/firecrawl/mocks"
)

func TestFirecrawlAdapter_Success(t *testing.T) {
	m := fcmocks.NewMockClient(t)
	m.On("Scrape", mock.Anything, mock.MatchedBy(func(r firecrawl.ScrapeRequest) bool {
		return r.URL == "https://www.idcrawl.com/john-doe" && r.WaitFor == firecrawlWaitMs &&
			r.OnlyMainContent && r.Location != nil && r.Location.Country == "US"
	})).Return(&firecrawl.Document{
		Markdown: longContent,
		Metadata: firecrawl.Metadata{Title: "John Doe | IDCrawl", StatusCode: 200},
	}, nil)

	a := NewFirecrawlAdapter(m, resilience.CircuitBreakerConfig{})
	assert.Equal(t, "firecrawl", a.Name())
	assert.True(t, a.Supports("https://www.idcrawl.com/john-doe"))

	res, err := a.Scrape(context.Background(), "https://www.idcrawl.com/john-doe")
	require.NoError(t, err)
	assert.Equal(t, "https://www.idcrawl.com/john-doe", res.Page.URL)
	assert.Equal(t, "John Doe | IDCrawl", res.Page.Title)
	assert.Equal(t, 200, res.Page.StatusCode)
}

func TestFirecrawlAdapter_Failures(t *testing.T) {
	m := fcmocks.NewMockClient(t)
	m.On("Scrape", mock.Anything, mock.Anything).Return(&firecrawl.Document{Markdown: "captcha"}, nil).Once()
	m.On("Scrape", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()

	a := NewFirecrawlAdapter(m, resilience.CircuitBreakerConfig{FailureThreshold: 5})
	_, err := a.Scrape(context.Background(), "https://x")
	require.Error(t, err)
	_, err = a.Scrape(context.Background(), "https://x")
	require.Error(t, err)
}

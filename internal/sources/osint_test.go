package sources

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/scrape"
)

func TestSiteURLs(t *testing.T) {
	sites, err := LoadSites(nil)
	require.NoError(t, err)

	got := SiteURLs(sites, "John Q Doe", "New York, NY")
	require.Len(t, got, 4)
	assert.Equal(t, "https://www.truepeoplesearch.com/results?name=John+Doe&citystatezip=New+York%2C+NY", got[0].URL)
	assert.Equal(t, "https://www.familytreenow.com/search/people/results?first=John&last=Doe&citystatezip=New+York%2C+NY", got[1].URL)
	assert.Equal(t, "https://www.peekyou.com/john_doe/new_york_ny", got[2].URL)
	assert.Equal(t, "https://www.idcrawl.com/john-doe", got[3].URL)

	got = SiteURLs(sites, "John Doe", "")
	assert.Equal(t, "https://www.peekyou.com/john_doe/us", got[2].URL)
	assert.True(t, strings.HasSuffix(got[0].URL, "citystatezip="))

	assert.Nil(t, SiteURLs(sites, "Madonna", ""))
}

func TestLoadSites_Invalid(t *testing.T) {
	_, err := LoadSites([]byte("sites:\n  - name: x\n"))
	require.Error(t, err)
}

type siteScraper struct{}

func (siteScraper) Name() string           { return "stub" }
func (siteScraper) Supports(_ string) bool { return true }
func (siteScraper) Scrape(_ context.Context, u string) (*scrape.Result, error) {
	if strings.Contains(u, "familytreenow") {
		return nil, errors.New("blocked")
	}
	if strings.Contains(u, "idcrawl") {
		return &scrape.Result{Page: model.Page{URL: u, Markdown: strings.Repeat("é", 12000)}, Source: "stub"}, nil
	}
	return &scrape.Result{Page: model.Page{URL: u, Markdown: strings.Repeat("r", 12000)}, Source: "stub"}, nil
}

func TestPeopleSearch_Scan(t *testing.T) {
	sites, err := LoadSites(nil)
	require.NoError(t, err)
	ps := NewPeopleSearch(scrape.NewChain(siteScraper{}), sites)

	got := ps.Scan(context.Background(), "Jane Doe", "Denver, CO")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"truepeoplesearch", "peekyou", "idcrawl"},
		[]string{got[0].Source, got[1].Source, got[2].Source})
	for _, r := range got {
		assert.True(t, r.PublicRecord())
		md := r.Pages[0].Markdown
		assert.True(t, utf8.ValidString(md), r.Source)
		assert.Equal(t, maxRecordChars, utf8.RuneCountInString(md), r.Source)
	}

	assert.Nil(t, ps.Scan(context.Background(), "Jane", ""))
}

package identifiers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/sources"
	srcmocks "github.com/sells-group/person-search/internal/sources/mocks"
)

type liveSet map[string]bool

func (l liveSet) Live(_ context.Context, rawURL string) bool { return l[rawURL] }

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		info  *model.StructuredInfo
		want  model.Identifiers
	}{
		{
			name:  "handle query seeds instagram and twitter",
			query: "@jdoe",
			want:  model.Identifiers{model.PlatformInstagram: "jdoe", model.PlatformTwitter: "jdoe"},
		},
		{
			name:  "bare at sign ignored",
			query: "@",
			want:  model.Identifiers{},
		},
		{
			name:  "structured profiles use username or url by platform",
			query: "Jane Doe",
			info: &model.StructuredInfo{SocialProfiles: []model.SocialProfile{
				{Platform: model.PlatformInstagram, Username: "@janedoe", URL: "https://instagram.com/janedoe"},
				{Platform: model.PlatformLinkedIn, Username: "jane-doe", URL: "https://www.linkedin.com/in/jane-doe"},
				{Platform: model.PlatformTwitter, URL: "https://x.com/jane"},
				{Platform: model.PlatformYouTube, URL: "https://youtube.com/@janedoe"},
			}},
			want: model.Identifiers{
				model.PlatformInstagram: "janedoe",
				model.PlatformLinkedIn:  "https://www.linkedin.com/in/jane-doe",
				model.PlatformTwitter:   "jane",
				model.PlatformYouTube:   "https://youtube.com/@janedoe",
			},
		},
		{
			name:  "handle taken from url when username missing",
			query: "Jane Doe",
			info: &model.StructuredInfo{SocialProfiles: []model.SocialProfile{
				{Platform: model.PlatformTikTok, URL: "https://www.tiktok.com/@janedoe?lang=en"},
				{Platform: model.PlatformInstagram, URL: "https://instagram.com/jane.doe/"},
				{Platform: model.PlatformTwitter, URL: "https://x.com"},
				{Platform: model.PlatformTwitter, URL: "not a url"},
			}},
			want: model.Identifiers{
				model.PlatformTikTok:    "janedoe",
				model.PlatformInstagram: "jane.doe",
			},
		},
		{
			name:  "structured username overrides seeded handle",
			query: "@jd",
			info: &model.StructuredInfo{SocialProfiles: []model.SocialProfile{
				{Platform: model.PlatformTwitter, Username: "realjd"},
			}},
			want: model.Identifiers{model.PlatformInstagram: "jd", model.PlatformTwitter: "realjd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromQuery(tt.query, tt.info))
		})
	}
}

func TestExtract_SkipsFallbackWhenPriorityPresent(t *testing.T) {
	web := srcmocks.NewMockWebSearch(t)
	e := New(web, liveSet{})

	ids, profiles := e.Extract(context.Background(), "@jdoe", nil)

	assert.Equal(t, "jdoe", ids[model.PlatformTwitter])
	assert.Nil(t, profiles)
	web.AssertNotCalled(t, "SiteSearch", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtract_SiteSearchFallback(t *testing.T) {
	web := srcmocks.NewMockWebSearch(t)
	hit := func(u string) []model.SearchHit { return []model.SearchHit{{URL: u}} }
	web.On("SiteSearch", mock.Anything, "instagram.com", "Jane Doe").Return(hit("https://www.instagram.com/jane.doe/"), nil)
	web.On("SiteSearch", mock.Anything, "twitter.com", "Jane Doe").Return(hit("https://x.com/janedoe"), nil)
	web.On("SiteSearch", mock.Anything, "linkedin.com/in/", "Jane Doe").Return(hit("https://www.linkedin.com/in/jane-doe-123"), nil)
	web.On("SiteSearch", mock.Anything, "facebook.com", "Jane Doe").Return(hit("https://evil.example/facebook.com/jane"), nil)
	web.On("SiteSearch", mock.Anything, "youtube.com", "Jane Doe").Return(nil, errors.New("search: 500"))
	web.On("SiteSearch", mock.Anything, "tiktok.com", "Jane Doe").Return(hit("https://www.tiktok.com/@janedoe"), nil)

	live := liveSet{
		"https://instagram.com/jane.doe":          true,
		"https://www.linkedin.com/in/jane-doe-123": true,
		"https://tiktok.com/@janedoe":              true,
		// twitter guess is dead
	}
	info := &model.StructuredInfo{SocialProfiles: []model.SocialProfile{
		{Platform: model.PlatformTikTok, URL: "https://www.tiktok.com/@janedoe"},
	}}
	ids, profiles := New(web, live).Extract(context.Background(), "Jane Doe", info)

	assert.Equal(t, model.Identifiers{
		model.PlatformInstagram: "jane.doe",
		model.PlatformLinkedIn:  "https://www.linkedin.com/in/jane-doe-123",
		model.PlatformTikTok:    "@janedoe",
	}, ids)

	assert.Equal(t, []model.SocialProfile{
		{Platform: model.PlatformInstagram, Username: "jane.doe", URL: "https://instagram.com/jane.doe", Source: SourceSearchFallback},
		{Platform: model.PlatformLinkedIn, URL: "https://www.linkedin.com/in/jane-doe-123", Source: SourceSearchFallback},
	}, profiles, "tiktok already had a structured profile")
}

func TestExtract_UnavailableWebSearch(t *testing.T) {
	e := New(sources.DisabledWebSearch(), nil)
	ids, profiles := e.Extract(context.Background(), "Jane Doe", nil)
	assert.Empty(t, ids)
	assert.Empty(t, profiles)
}

func TestParseHit(t *testing.T) {
	byPlatform := map[model.Platform]site{}
	for _, s := range fallbackSites {
		byPlatform[s.platform] = s
	}
	tests := []struct {
		platform model.Platform
		url      string
		want     string
	}{
		{model.PlatformInstagram, "https://instagram.com/", ""},
		{model.PlatformInstagram, "https://www.instagram.com/someone", "someone"},
		{model.PlatformTwitter, "https://twitter.com/someone/", "someone"},
		{model.PlatformTwitter, "https://mobile.x.com/someone", "someone"},
		{model.PlatformTikTok, "https://www.tiktok.com/@someone", "@someone"},
		{model.PlatformTikTok, "https://www.tiktok.com/discover/someone", "https://www.tiktok.com/discover/someone"},
		{model.PlatformFacebook, "https://m.facebook.com/someone", "https://m.facebook.com/someone"},
		{model.PlatformFacebook, "https://notfacebook.com/someone", ""},
		{model.PlatformLinkedIn, "not a url", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.platform)+" "+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHit(byPlatform[tt.platform], tt.url))
		})
	}
}

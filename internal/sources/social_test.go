package sources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/model"
	apifymocks "github.com/sells-group/person-search/pkg/apify/mocks"
)

func TestLoadActorCatalog_Default(t *testing.T) {
	cat, err := LoadActorCatalog(nil)
	require.NoError(t, err)
	assert.Len(t, cat, 6)
	assert.Equal(t, "apify/instagram-profile-scraper", cat[model.PlatformInstagram].Actor)
	assert.Equal(t, 50, cat[model.PlatformInstagram].Input["resultsLimit"])
}

func TestLoadActorCatalog_Invalid(t *testing.T) {
	_, err := LoadActorCatalog([]byte("platforms:\n  instagram:\n    input: {}\n"))
	require.Error(t, err)

	_, err = LoadActorCatalog([]byte("platforms: [oops"))
	require.Error(t, err)
}

func TestFillTemplate(t *testing.T) {
	in := map[string]any{
		"startUrls": []any{map[string]any{"url": "{target}"}},
		"maxItems":  20,
		"handles":   []any{"{target}"},
	}
	got := fillTemplate(in, "https://facebook.com/jane")
	assert.Equal(t, map[string]any{
		"startUrls": []any{map[string]any{"url": "https://facebook.com/jane"}},
		"maxItems":  20,
		"handles":   []any{"https://facebook.com/jane"},
	}, got)
	assert.Equal(t, "{target}", in["handles"].([]any)[0], "template is not mutated")
}

func TestApify_Fetch(t *testing.T) {
	cat, err := LoadActorCatalog(nil)
	require.NoError(t, err)

	m := apifymocks.NewMockClient(t)
	m.On("RunSync", mock.Anything, "web.harvester/twitter-scraper", map[string]any{
		"twitterHandles": []any{"janedoe"},
		"maxItems":       20,
	}).Return([]json.RawMessage{json.RawMessage(`{"text":"hello"}`)}, nil)
	m.On("RunSync", mock.Anything, "apify/instagram-profile-scraper", mock.Anything).Return(nil, errors.New("actor timed out"))

	a := NewApify(m, cat, time.Second)
	assert.True(t, a.Supports(model.PlatformYouTube))

	res := a.Fetch(context.Background(), model.PlatformTwitter, "janedoe")
	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, "twitter", res.Source)
	assert.Equal(t, "janedoe", res.Target)

	res = a.Fetch(context.Background(), model.PlatformInstagram, "janedoe")
	assert.Error(t, res.Err)
	assert.False(t, res.OK())
}

func TestApify_FetchRejectsUnknownAndEmpty(t *testing.T) {
	a := NewApify(apifymocks.NewMockClient(t), ActorCatalog{}, 0)
	assert.False(t, a.Supports(model.PlatformTikTok))
	assert.Error(t, a.Fetch(context.Background(), model.PlatformTikTok, "x").Err)

	cat, _ := LoadActorCatalog(nil)
	a = NewApify(apifymocks.NewMockClient(t), cat, 0)
	assert.Error(t, a.Fetch(context.Background(), model.PlatformTikTok, " ").Err)
}

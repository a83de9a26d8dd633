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

	"github.com/sells-group/person-search/internal/llm/mocks"
	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/pkg/perplexity"
	pplxmocks "github.com/sells-group/person-search/pkg/perplexity/mocks"
)

func chat(text string, images ...string) *perplexity.ChatCompletionResponse {
	resp := &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: text}}},
	}
	for _, u := range images {
		resp.Images = append(resp.Images, perplexity.Image{ImageURL: u})
	}
	return resp
}

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}
}

const structuredJSON = `{
  "basic_info": {"name": "Jane Doe", "occupation": "CTO", "company": "Acme"},
  "social_profiles": [
    {"platform": "X", "username": "@janedoe", "url": "https://x.com/janedoe", "followers": "1.2K", "verified": "true"},
    {"platform": "LinkedIn", "url": "https://linkedin.com/in/janedoe", "followers": 500},
    {"platform": "myspace", "url": "https://myspace.com/jd"},
    {"platform": "instagram"}
  ],
  "photos": ["https://img/a.jpg", {"url": "https://img/b.jpg", "caption": "keynote"}, {"caption": "no url"}],
  "notable_mentions": [{"title": "Named CTO", "url": "https://news/1"}, {"title": "  "}]
}`

func TestPerplexity_Query(t *testing.T) {
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(r perplexity.ChatCompletionRequest) bool {
		return r.ReturnImages && len(r.Messages) == 2 && r.Messages[0].Role == "system"
	})).Return(chat("Jane Doe is the CTO of Acme.", "https://img/p1.jpg", ""), nil)

	lm := mocks.NewCompleter(t)
	lm.On("JSON", mock.Anything, mocks.Phase("extract_structured")).Return(structuredJSON, nil)

	res, err := NewPerplexity(pc, lm, noRetry()).Query(context.Background(), "jane doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe is the CTO of Acme.", res.Content)

	info := res.Structured
	require.NotNil(t, info)
	assert.Equal(t, "Acme", info.BasicInfo.Company)

	require.Len(t, info.SocialProfiles, 2)
	tw := info.SocialProfiles[0]
	assert.Equal(t, model.PlatformTwitter, tw.Platform)
	assert.Equal(t, "janedoe", tw.Username)
	require.NotNil(t, tw.Followers)
	assert.Equal(t, 1200, *tw.Followers)
	require.NotNil(t, tw.Verified)
	assert.True(t, *tw.Verified)
	assert.Equal(t, 500, *info.SocialProfiles[1].Followers)

	urls := make([]string, len(info.Photos))
	for i, p := range info.Photos {
		urls[i] = p.URL
	}
	assert.Equal(t, []string{"https://img/a.jpg", "https://img/b.jpg", "https://img/p1.jpg"}, urls)
	assert.Equal(t, "keynote", info.Photos[1].Caption)

	require.Len(t, info.NotableMentions, 1)
	assert.Equal(t, "Named CTO", info.NotableMentions[0].Title)
}

func TestPerplexity_QueryExtractionFailureDegrades(t *testing.T) {
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.Anything).Return(chat("some text"), nil)
	lm := mocks.NewCompleter(t)
	lm.On("JSON", mock.Anything, mock.Anything).Return("", errors.New("overloaded"))

	res, err := NewPerplexity(pc, lm, noRetry()).Query(context.Background(), "jane doe")
	require.NoError(t, err)
	require.NotNil(t, res.Structured)
	assert.Empty(t, res.Structured.SocialProfiles)
}

func TestPerplexity_QueryError(t *testing.T) {
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("401"))

	_, err := NewPerplexity(pc, mocks.NewCompleter(t), noRetry()).Query(context.Background(), "jane doe")
	require.Error(t, err)
}

func TestPerplexity_ExtractStructuredEmptyInput(t *testing.T) {
	info, err := NewPerplexity(pplxmocks.NewMockClient(t), mocks.NewCompleter(t), noRetry()).
		ExtractStructured(context.Background(), "q", "   ")
	require.NoError(t, err)
	assert.Equal(t, &model.StructuredInfo{}, info)
}

func TestPerplexity_FindCandidates(t *testing.T) {
	reply := "Here you go:\n```json\n" + `{"candidates": [
		{"id": "", "name": "Michael Jordan", "description": "Basketball player • Chicago, IL", "imageUrl": "https://img/mj.jpg"},
		{"id": "mj-2", "name": "Michael B. Jordan", "description": "Actor • Los Angeles, CA", "imageUrl": null},
		{"id": "x", "name": " "},
		{"name": "C"}, {"name": "D"}, {"name": "E"}, {"name": "F"}
	]}` + "\n```"
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(r perplexity.ChatCompletionRequest) bool {
		return !r.ReturnImages
	})).Return(chat(reply), nil)

	got, err := NewPerplexity(pc, mocks.NewCompleter(t), noRetry()).FindCandidates(context.Background(), "michael jordan")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "Michael Jordan", got[0].ID)
	assert.Equal(t, "https://img/mj.jpg", got[0].ImageURL)
	assert.Equal(t, "mj-2", got[1].ID)
	assert.Empty(t, got[1].ImageURL)
	assert.Equal(t, model.CandidateSourceLLM, got[1].Source)
	assert.Equal(t, "E", got[4].Name)
}

func TestPerplexity_FindCandidatesUniqueIDs(t *testing.T) {
	reply := `{"candidates": [
		{"name": "John Smith", "description": "Chef"},
		{"name": "John Smith", "description": "Dentist"},
		{"id": "1", "name": "John R. Smith"},
		{"id": "1", "name": "John T. Smith"}
	]}`
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.Anything).Return(chat(reply), nil)

	got, err := NewPerplexity(pc, mocks.NewCompleter(t), noRetry()).FindCandidates(context.Background(), "john smith")
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"John Smith", "John Smith-2", "1", "1-2"}, ids)
}

func TestPerplexity_FindCandidatesNoJSON(t *testing.T) {
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.Anything).Return(chat("I could not find anyone."), nil)

	_, err := NewPerplexity(pc, mocks.NewCompleter(t), noRetry()).FindCandidates(context.Background(), "zzz")
	require.Error(t, err)
}

func TestNormalizePlatform(t *testing.T) {
	for in, want := range map[string]model.Platform{
		"X": model.PlatformTwitter, " Twitter ": model.PlatformTwitter, "LinkedIn": model.PlatformLinkedIn,
		"tiktok": model.PlatformTikTok, "YouTube": model.PlatformYouTube,
	} {
		got, ok := NormalizePlatform(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := NormalizePlatform("myspace")
	assert.False(t, ok)
}

func TestLenientInt(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{`1200`, intp(1200)},
		{`"1,200"`, intp(1200)},
		{`"3.4M"`, intp(3400000)},
		{`"2k"`, intp(2000)},
		{`"lots"`, nil},
		{`null`, nil},
		{``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, lenientInt(json.RawMessage(tt.raw)))
		})
	}
}

func intp(n int) *int { return &n }

func TestPerplexity_RetriesThrottledQuery(t *testing.T) {
	pc := pplxmocks.NewMockClient(t)
	pc.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, &perplexity.APIError{StatusCode: 429, Body: "slow down"}).Once()
	pc.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(chat("Jane Doe is a CTO."), nil).Once()
	lm := mocks.NewCompleter(t)
	lm.On("JSON", mock.Anything, mocks.Phase("extract_structured")).Return(structuredJSON, nil)

	retry := resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	res, err := NewPerplexity(pc, lm, retry).Query(context.Background(), "jane doe")

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe is a CTO.", res.Content)
}

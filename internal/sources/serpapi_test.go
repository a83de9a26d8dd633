package sources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/pkg/serpapi"
	serpmocks "github.com/sells-group/person-search/pkg/serpapi/mocks"
)

func pageReq(start int) any {
	return mock.MatchedBy(func(r serpapi.SearchRequest) bool {
		return r.Engine == "google" && r.Query == "john smith" && r.Num == 4 && r.Start == start
	})
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Elon Musk (Entrepreneur)", "Elon Musk"},
		{"Jane Doe | LinkedIn", "Jane Doe"},
		{"Jane Doe - Wikipedia", "Jane Doe"},
		{"John Smith on Instagram: photos and videos", "John Smith"},
		{"20+ John Smith profiles", "John Smith profiles"},
		{"Top 10 John Smiths", "John Smiths"},
		{"Mary-Kate Olsen", "Mary-Kate Olsen"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.in))
		})
	}
}

func TestSerpAPI_Candidates(t *testing.T) {
	m := serpmocks.NewMockClient(t)
	m.On("Search", mock.Anything, pageReq(0)).Return(&serpapi.SearchResponse{
		KnowledgeGraph: &serpapi.KnowledgeGraph{
			Title:        "John Smith",
			Type:         "Explorer",
			HeaderImages: []serpapi.HeaderImage{{Image: "https://img/kg.jpg"}},
		},
		OrganicResults: []serpapi.OrganicResult{
			{Title: "John Smith - CTO - Acme | LinkedIn", Snippet: "CTO at Acme", Thumbnail: "https://img/li.jpg"},
			{Title: "John Smith (explorer) - Wikipedia", Snippet: "Explorer and navigator", Thumbnail: "https://img/kg.jpg"},
		},
		RelatedSearches: []serpapi.RelatedSearch{
			{Query: "John Smith actor", Thumbnail: "https://img/actor.jpg"},
			{Query: "john smith net worth"},
		},
	}, nil)
	m.On("Search", mock.Anything, pageReq(4)).Return(&serpapi.SearchResponse{
		OrganicResults: []serpapi.OrganicResult{
			{Title: "John Smith | LinkedIn", Snippet: "CTO at Acme"},
			{Title: "John Smith", Snippet: "Plumber in Austin"},
		},
		RelatedSearches: []serpapi.RelatedSearch{{Query: "ignored off page zero", Thumbnail: "https://img/x.jpg"}},
	}, nil)
	m.On("Search", mock.Anything, pageReq(8)).Return(nil, errors.New("timeout"))
	m.On("Search", mock.Anything, pageReq(12)).Return(&serpapi.SearchResponse{Error: "Google hasn't returned any results"}, nil)

	got, err := NewSerpAPI(m).Candidates(context.Background(), "john smith")
	require.NoError(t, err)

	names := make([]string, len(got))
	ids := make([]string, len(got))
	for i, c := range got {
		names[i] = c.Name
		ids[i] = c.ID
		assert.Equal(t, model.CandidateSourceSerpAPI, c.Source)
	}
	// The Wikipedia result reuses the knowledge-graph image and the second
	// LinkedIn result repeats name and description.
	assert.Equal(t, []string{"John Smith", "John Smith", "John Smith actor", "John Smith"}, names)
	assert.Equal(t, []string{"John Smith", "John Smith-2", "John Smith actor", "John Smith-3"}, ids)
	assert.Equal(t, "Explorer", got[0].Description)
	assert.Equal(t, "https://img/kg.jpg", got[0].ImageURL)
	assert.Equal(t, "Related search", got[2].Description)
	assert.Equal(t, "Plumber in Austin", got[3].Description)
}

func TestSerpAPI_CandidatesAllPagesFail(t *testing.T) {
	m := serpmocks.NewMockClient(t)
	m.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("401"))

	_, err := NewSerpAPI(m).Candidates(context.Background(), "john smith")
	require.Error(t, err)
	m.AssertNumberOfCalls(t, "Search", 4)
}

func TestSerpAPI_KnowledgeGraphImageFallback(t *testing.T) {
	c, ok := knowledgeGraphCandidate(&serpapi.KnowledgeGraph{
		Title:       "Ada Lovelace",
		Description: "Mathematician",
		Images:      []json.RawMessage{json.RawMessage(`"https://img/ada.jpg"`)},
	})
	require.True(t, ok)
	assert.Equal(t, "https://img/ada.jpg", c.ImageURL)
	assert.Equal(t, "Mathematician", c.Description)

	_, ok = knowledgeGraphCandidate(&serpapi.KnowledgeGraph{})
	assert.False(t, ok)
}

func TestSerpAPI_Images(t *testing.T) {
	m := serpmocks.NewMockClient(t)
	m.On("Search", mock.Anything, serpapi.SearchRequest{Engine: "google_images", Query: "Jane Doe Acme", Num: 1}).
		Return(&serpapi.SearchResponse{ImagesResults: []serpapi.ImageResult{{Thumbnail: "https://t/1.jpg"}}}, nil)
	m.On("Search", mock.Anything, serpapi.SearchRequest{Engine: "google_images", Query: "Jane Doe", Num: 2}).
		Return(&serpapi.SearchResponse{ImagesResults: []serpapi.ImageResult{
			{Original: "https://o/1.jpg"}, {Thumbnail: "https://t/2.jpg"}, {Original: "https://o/3.jpg"}, {Original: "https://o/4.jpg"},
		}}, nil)
	m.On("Search", mock.Anything, serpapi.SearchRequest{Engine: "google_images", Query: "nobody", Num: 1}).
		Return(&serpapi.SearchResponse{}, nil)

	s := NewSerpAPI(m)
	one, err := s.SearchOne(context.Background(), "Jane Doe Acme")
	require.NoError(t, err)
	assert.Equal(t, "https://t/1.jpg", one)

	many, err := s.SearchMany(context.Background(), "Jane Doe", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://o/1.jpg", "https://o/3.jpg"}, many)

	none, err := s.SearchOne(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	zero, err := s.SearchMany(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Nil(t, zero)
}

func TestSerpAPI_SiteSearch(t *testing.T) {
	m := serpmocks.NewMockClient(t)
	m.On("Search", mock.Anything, mock.MatchedBy(func(r serpapi.SearchRequest) bool {
		return r.Query == "site:instagram.com Jane Doe"
	})).Return(&serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
		{Title: "no link"},
		{Title: "Jane (@janedoe)", Link: "https://www.instagram.com/janedoe/", Snippet: "photos"},
	}}, nil)

	hits, err := NewSerpAPI(m).SiteSearch(context.Background(), "instagram.com", "Jane Doe")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "https://www.instagram.com/janedoe/", hits[0].URL)
}

package serpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		req        SearchRequest
		statusCode int
		response   string
		wantErr    string
		check      func(t *testing.T, r *http.Request)
		verify     func(t *testing.T, resp *SearchResponse)
	}{
		{
			name:       "google engine with paging",
			req:        SearchRequest{Query: "john smith", Start: 8, Num: 4},
			statusCode: http.StatusOK,
			response: `{
				"knowledge_graph": {"title": "John Smith", "type": "Explorer", "images": ["https://img.example/kg.jpg"]},
				"organic_results": [{"position": 1, "title": "John Smith | LinkedIn", "link": "https://linkedin.com/in/jsmith", "snippet": "CTO", "thumbnail": "https://img.example/t.jpg"}],
				"related_searches": [{"query": "John Smith actor", "thumbnail": "https://img.example/r.jpg"}]
			}`,
			check: func(t *testing.T, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "google", q.Get("engine"))
				assert.Equal(t, "john smith", q.Get("q"))
				assert.Equal(t, "8", q.Get("start"))
				assert.Equal(t, "4", q.Get("num"))
				assert.Equal(t, "us", q.Get("gl"))
				assert.Equal(t, "en", q.Get("hl"))
				assert.Equal(t, "test-key", q.Get("api_key"))
			},
			verify: func(t *testing.T, resp *SearchResponse) {
				require.NotNil(t, resp.KnowledgeGraph)
				assert.Equal(t, "https://img.example/kg.jpg", resp.KnowledgeGraph.FirstImage())
				require.Len(t, resp.OrganicResults, 1)
				assert.Equal(t, "CTO", resp.OrganicResults[0].Snippet)
				require.Len(t, resp.RelatedSearches, 1)
			},
		},
		{
			name:       "google images",
			req:        SearchRequest{Engine: EngineGoogleImages, Query: "jane doe", Num: 1},
			statusCode: http.StatusOK,
			response:   `{"images_results": [{"position": 1, "thumbnail": "https://img.example/th.jpg"}]}`,
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "google_images", r.URL.Query().Get("engine"))
				assert.Empty(t, r.URL.Query().Get("start"))
			},
			verify: func(t *testing.T, resp *SearchResponse) {
				require.Len(t, resp.ImagesResults, 1)
				assert.Equal(t, "https://img.example/th.jpg", resp.ImagesResults[0].BestURL())
			},
		},
		{
			name:       "empty results reported in error field",
			req:        SearchRequest{Query: "zzzz"},
			statusCode: http.StatusOK,
			response:   `{"error": "Google hasn't returned any results for this query."}`,
			verify: func(t *testing.T, resp *SearchResponse) {
				assert.Empty(t, resp.OrganicResults)
				assert.NotEmpty(t, resp.Error)
			},
		},
		{
			name:       "http error",
			req:        SearchRequest{Query: "x"},
			statusCode: http.StatusUnauthorized,
			response:   `{"error": "Invalid API key"}`,
			wantErr:    "unexpected status 401",
		},
		{
			name:       "invalid json",
			req:        SearchRequest{Query: "x"},
			statusCode: http.StatusOK,
			response:   `{`,
			wantErr:    "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.check != nil {
					tt.check(t, r)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(100))
			resp, err := c.Search(context.Background(), tt.req)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.verify(t, resp)
		})
	}
}

func TestKnowledgeGraph_FirstImage(t *testing.T) {
	kg := &KnowledgeGraph{HeaderImages: []HeaderImage{{Image: "https://img.example/h.jpg"}}}
	assert.Equal(t, "https://img.example/h.jpg", kg.FirstImage())

	kg = &KnowledgeGraph{Images: []json.RawMessage{json.RawMessage(`{"image": "https://img.example/o.jpg"}`)}}
	assert.Equal(t, "https://img.example/o.jpg", kg.FirstImage())

	kg = &KnowledgeGraph{}
	assert.Empty(t, kg.FirstImage())
}

func TestSearch_RateLimitContextCanceled(t *testing.T) {
	c := NewClient("k", WithBaseURL("http://127.0.0.1:0"), WithRateLimit(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, SearchRequest{Query: "x"})
	require.Error(t, err)
}

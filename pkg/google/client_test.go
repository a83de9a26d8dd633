package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), key, "engine-1", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestImageSearch_Success(t *testing.T) {
	c := newTestClient(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "Jane Doe engineer Austin", q.Get("q"))
		assert.Equal(t, "image", q.Get("searchType"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "face", q.Get("imgType"))
		assert.Equal(t, "active", q.Get("safe"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"title":"Jane Doe","link":"https://img.example/jane.jpg","mime":"image/jpeg",
			"image":{"contextLink":"https://acme.example/team","height":400,"width":300}}]}`))
	})

	resp, err := c.ImageSearch(context.Background(), ImageSearchRequest{
		Query:   "Jane Doe engineer Austin",
		Num:     5,
		ImgType: "face",
		Safe:    "active",
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	item := resp.Items[0]
	assert.Equal(t, "https://img.example/jane.jpg", item.Link)
	assert.Equal(t, "https://acme.example/team", item.Image.ContextLink)
	assert.Equal(t, 400, item.Image.Height)
}

func TestImageSearch_NumClamped(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		assert.Empty(t, r.URL.Query().Get("imgType"))
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := c.ImageSearch(context.Background(), ImageSearchRequest{Query: "x", Num: 50})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestImageSearch_APIError(t *testing.T) {
	c := newTestClient(t, "bad-key", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	})

	resp, err := c.ImageSearch(context.Background(), ImageSearchRequest{Query: "q"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestImageSearch_BadJSON(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.ImageSearch(context.Background(), ImageSearchRequest{Query: "q"})
	assert.ErrorContains(t, err, "google: image search")
}

func TestImageSearch_ContextCanceled(t *testing.T) {
	c := newTestClient(t, "k", func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ImageSearch(ctx, ImageSearchRequest{Query: "q"})
	assert.Error(t, err)
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Zero(t, StatusCode(context.Canceled))
}

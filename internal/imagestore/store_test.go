package imagestore

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/imagefetch"
)

func testFetcher() *imagefetch.Fetcher {
	return imagefetch.New(imagefetch.WithRetry(1, time.Millisecond))
}

func TestKey(t *testing.T) {
	tests := []struct {
		url     string
		wantExt string
	}{
		{"https://cdn.example/a/photo.PNG?x=1", ".png"},
		{"https://cdn.example/a/photo.webp", ".webp"},
		{"https://cdn.example/a/photo", ".jpg"},
		{"https://cdn.example/a/photo.php?id=3", ".jpg"},
	}
	for _, tt := range tests {
		k := Key(tt.url)
		assert.True(t, strings.HasSuffix(k, tt.wantExt), k)
		assert.Len(t, strings.TrimSuffix(k, tt.wantExt), 32)
	}
	assert.Equal(t, Key("https://x/a.jpg"), Key("https://x/a.jpg"))
	assert.NotEqual(t, Key("https://x/a.jpg?s=1"), Key("https://x/a.jpg?s=2"))
}

func TestProxy_UploadsOnceThenReuses(t *testing.T) {
	var downloads atomic.Int32
	body := bytes.Repeat([]byte{7}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	mem := NewMemory("https://img.internal")
	s := New(mem, testFetcher(), WithPrefixes("proxy", "refs"))

	src := srv.URL + "/p/face.webp?token=abc"
	got, err := s.Proxy(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "https://img.internal/proxy/"+Key(src), got)
	assert.Equal(t, "image/webp", mem.ContentType("proxy/"+Key(src)))

	again, err := s.Proxy(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, int32(1), downloads.Load())
}

func TestProxy_FailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := New(NewMemory("https://img.internal"), testFetcher())
	_, err := s.Proxy(context.Background(), srv.URL+"/blocked.jpg")
	require.Error(t, err)

	_, err = s.Proxy(context.Background(), "")
	require.Error(t, err)
}

func TestProxy_PassthroughWithoutObjects(t *testing.T) {
	s := New(nil, testFetcher())
	got, err := s.Proxy(context.Background(), "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.jpg", got)
}

func TestReferenceRoundTrip(t *testing.T) {
	s := New(nil, testFetcher())
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	id, err := s.PutReference(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "20260304T050607-"), id)

	data, err := s.GetReference(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	other, err := s.PutReference(context.Background(), []byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestReference_Errors(t *testing.T) {
	s := New(nil, testFetcher())
	_, err := s.PutReference(context.Background(), nil)
	require.Error(t, err)

	_, err = s.GetReference(context.Background(), "missing")
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.GetReference(context.Background(), "../etc/passwd")
	require.Error(t, err)
}

func TestGCS_PublicURL(t *testing.T) {
	g := &GCS{bucket: "person-images"}
	assert.Equal(t, "https://storage.googleapis.com/person-images/cache/a.jpg", g.PublicURL("cache/a.jpg"))

	g.publicBase = "https://img.example.com"
	assert.Equal(t, "https://img.example.com/cache/a.jpg", g.PublicURL("cache/a.jpg"))
}

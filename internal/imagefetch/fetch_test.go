package imagefetch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func serve(ct string, body []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ct)
		_, _ = w.Write(body)
	}))
}

func TestFetch_Success(t *testing.T) {
	body := bytes.Repeat([]byte{0xff}, 2048)
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "Image/JPEG")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	img, err := New().Fetch(context.Background(), srv.URL+"/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Len(t, img.Data, 2048)
	assert.Contains(t, ua, "Mozilla/5.0")
}

func TestFetch_Rejections(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body []byte
		want string
	}{
		{"html page", "text/html", bytes.Repeat([]byte("a"), 4096), "not an image"},
		{"tracking pixel", "image/gif", []byte("GIF89a"), "too small"},
		{"missing content type", "", bytes.Repeat([]byte{1}, 4096), "not an image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(tt.ct, tt.body)
			defer srv.Close()
			_, err := New(WithRetry(3, time.Millisecond)).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFetch_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(bytes.Repeat([]byte{2}, 1500))
	}))
	defer srv.Close()

	img, err := New(WithRetry(3, time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, img.Data, 1500)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(WithRetry(3, time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_MinBytesOption(t *testing.T) {
	srv := serve("image/png", []byte("0123456789"))
	defer srv.Close()

	img, err := New(WithMinBytes(10)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, img.Data, 10)
}

func TestFetch_EmptyURL(t *testing.T) {
	_, err := New().Fetch(context.Background(), "")
	require.Error(t, err)
}

func TestToJPEG(t *testing.T) {
	out, err := ToJPEG(pngBytes(t, 32, 24))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
}

func TestToJPEG_Invalid(t *testing.T) {
	_, err := ToJPEG(nil)
	require.Error(t, err)

	_, err = ToJPEG([]byte("<html>not an image</html>"))
	require.Error(t, err)
}

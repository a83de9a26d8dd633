package faces

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/imagefetch"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) DetectFaces(ctx context.Context, jpeg []byte) (int, error) {
	args := m.Called(ctx, jpeg)
	return args.Int(0), args.Error(1)
}

func (m *mockBackend) CompareFaces(ctx context.Context, source, target []byte, threshold float64) (float64, error) {
	args := m.Called(ctx, source, target, threshold)
	return args.Get(0).(float64), args.Error(1)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 6), uint8(y * 6), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// imageServer serves a real PNG at /face.png and HTML everywhere else.
func imageServer(t *testing.T) *httptest.Server {
	body := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/face.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(body)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestVerifier(b Backend) *Verifier {
	return NewVerifier(b, imagefetch.New(imagefetch.WithMinBytes(64), imagefetch.WithRetry(1, time.Millisecond)), 0)
}

func TestVerifier_ValidateImage(t *testing.T) {
	srv := imageServer(t)

	b := &mockBackend{}
	b.On("DetectFaces", mock.Anything, mock.Anything).Return(1, nil).Once()
	b.On("DetectFaces", mock.Anything, mock.Anything).Return(0, nil).Once()
	b.On("DetectFaces", mock.Anything, mock.Anything).Return(0, errors.New("throttled")).Once()

	v := newTestVerifier(b)
	assert.True(t, v.ValidateImage(context.Background(), srv.URL+"/face.png"))
	assert.False(t, v.ValidateImage(context.Background(), srv.URL+"/face.png"), "no face")
	assert.False(t, v.ValidateImage(context.Background(), srv.URL+"/face.png"), "backend error")
	assert.False(t, v.ValidateImage(context.Background(), srv.URL+"/logo"), "not an image")
	assert.False(t, v.ValidateImage(context.Background(), ""))
	b.AssertExpectations(t)
}

func TestVerifier_NoBackend(t *testing.T) {
	srv := imageServer(t)
	v := newTestVerifier(nil)

	assert.True(t, v.ValidateImage(context.Background(), srv.URL+"/face.png"))
	assert.False(t, v.ValidateImage(context.Background(), srv.URL+"/page"))
	assert.True(t, v.DetectFace(context.Background(), srv.URL+"/page"))
	assert.Zero(t, v.Compare(context.Background(), testPNG(t), srv.URL+"/face.png"))
	assert.Equal(t, DefaultThreshold, v.Threshold())
}

func TestVerifier_Compare(t *testing.T) {
	srv := imageServer(t)

	b := &mockBackend{}
	b.On("CompareFaces", mock.Anything, mock.Anything, mock.Anything, 70.0).Return(91.5, nil).Once()
	v := newTestVerifier(b)

	got := v.Compare(context.Background(), testPNG(t), srv.URL+"/face.png")
	assert.InDelta(t, 91.5, got, 1e-9)
	b.AssertExpectations(t)
}

func TestVerifier_CompareFailuresScoreZero(t *testing.T) {
	srv := imageServer(t)

	b := &mockBackend{}
	b.On("CompareFaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0.0, errors.New("InvalidParameterException")).Once()
	v := newTestVerifier(b)

	assert.Zero(t, v.Compare(context.Background(), testPNG(t), srv.URL+"/face.png"), "backend error")
	assert.Zero(t, v.Compare(context.Background(), []byte("junk"), srv.URL+"/face.png"), "bad reference")
	assert.Zero(t, v.Compare(context.Background(), testPNG(t), srv.URL+"/missing"), "bad target")
	assert.Zero(t, v.Compare(context.Background(), nil, srv.URL+"/face.png"), "no reference")
	b.AssertExpectations(t)
}

func TestVision_CompareUnsupported(t *testing.T) {
	_, err := (&Vision{}).CompareFaces(context.Background(), nil, nil, 70)
	assert.ErrorIs(t, err, ErrCompareUnsupported)
}

func TestNewBackend_NoneAndUnknown(t *testing.T) {
	b, err := NewBackend(context.Background(), "none", "")
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = NewBackend(context.Background(), "opencv", "")
	require.Error(t, err)
}

func TestVerifier_CanCompare(t *testing.T) {
	assert.False(t, NewVerifier(nil, nil, 0).CanCompare())
	assert.False(t, NewVerifier(&Vision{}, nil, 0).CanCompare())
	assert.True(t, NewVerifier(&mockBackend{}, nil, 0).CanCompare())
}

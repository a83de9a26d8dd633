// Package faces wraps a face-recognition backend with the download and
// normalization steps the pipeline needs around it.
package faces

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/imagefetch"
)

// DefaultThreshold is the similarity (0-100) a photo needs to count as the
// reference person.
const DefaultThreshold = 70.0

// ErrCompareUnsupported is returned by backends that can detect but not
// compare faces.
var ErrCompareUnsupported = eris.New("faces: compare not supported by backend")

// Backend detects and compares faces in JPEG bytes.
type Backend interface {
	Name() string
	DetectFaces(ctx context.Context, jpeg []byte) (int, error)
	// CompareFaces returns the best similarity (0-100) of any face in
	// target to the face in source, or 0 when none clears threshold.
	CompareFaces(ctx context.Context, source, target []byte, threshold float64) (float64, error)
}

// Service is the face capability consumed by the resolver and aggregator.
// Every method absorbs backend errors: a failed call yields false or 0.
type Service interface {
	// ValidateImage downloads url and reports whether it is a usable
	// face photo: reachable, image/*, large enough, with a face.
	ValidateImage(ctx context.Context, url string) bool
	// DetectFace reports whether the image at url contains a face. It is
	// true when no backend is configured.
	DetectFace(ctx context.Context, url string) bool
	// Compare returns the similarity of the face at targetURL to reference.
	Compare(ctx context.Context, reference []byte, targetURL string) float64
	// CanCompare is false when Compare would always report 0.
	CanCompare() bool
	Threshold() float64
}

// Verifier implements Service.
type Verifier struct {
	backend   Backend
	fetch     *imagefetch.Fetcher
	threshold float64
}

// NewVerifier creates a Verifier. A nil backend disables detection and
// comparison while keeping the download checks.
func NewVerifier(backend Backend, fetch *imagefetch.Fetcher, threshold float64) *Verifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if fetch == nil {
		fetch = imagefetch.New()
	}
	return &Verifier{backend: backend, fetch: fetch, threshold: threshold}
}

// CanCompare implements Service. Backends may opt out of comparison with
// a SupportsCompare method.
func (v *Verifier) CanCompare() bool {
	if v.backend == nil {
		return false
	}
	if s, ok := v.backend.(interface{ SupportsCompare() bool }); ok {
		return s.SupportsCompare()
	}
	return true
}

// Threshold implements Service.
func (v *Verifier) Threshold() float64 { return v.threshold }

// ValidateImage implements Service.
func (v *Verifier) ValidateImage(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	img, err := v.fetch.Fetch(ctx, url)
	if err != nil {
		zap.L().Debug("faces: image rejected", zap.String("url", url), zap.Error(err))
		return false
	}
	if v.backend == nil {
		return true
	}
	return v.hasFace(ctx, url, img.Data)
}

// DetectFace implements Service.
func (v *Verifier) DetectFace(ctx context.Context, url string) bool {
	if v.backend == nil {
		return true
	}
	img, err := v.fetch.Fetch(ctx, url)
	if err != nil {
		return false
	}
	return v.hasFace(ctx, url, img.Data)
}

func (v *Verifier) hasFace(ctx context.Context, url string, raw []byte) bool {
	norm, err := imagefetch.ToJPEG(raw)
	if err != nil {
		zap.L().Debug("faces: normalize failed", zap.String("url", url), zap.Error(err))
		return false
	}
	n, err := v.backend.DetectFaces(ctx, norm)
	if err != nil {
		zap.L().Warn("faces: detect failed", zap.String("backend", v.backend.Name()), zap.String("url", url), zap.Error(err))
		return false
	}
	return n > 0
}

// Compare implements Service.
func (v *Verifier) Compare(ctx context.Context, reference []byte, targetURL string) float64 {
	if v.backend == nil || len(reference) == 0 || targetURL == "" {
		return 0
	}
	src, err := imagefetch.ToJPEG(reference)
	if err != nil {
		zap.L().Warn("faces: reference image unusable", zap.Error(err))
		return 0
	}
	img, err := v.fetch.Fetch(ctx, targetURL)
	if err != nil {
		return 0
	}
	tgt, err := imagefetch.ToJPEG(img.Data)
	if err != nil {
		return 0
	}
	sim, err := v.backend.CompareFaces(ctx, src, tgt, v.threshold)
	if err != nil {
		if !eris.Is(err, ErrCompareUnsupported) {
			zap.L().Warn("faces: compare failed", zap.String("backend", v.backend.Name()), zap.String("url", targetURL), zap.Error(err))
		}
		return 0
	}
	return sim
}

// NewBackend builds the backend named by kind. "none" returns a nil
// Backend, which NewVerifier treats as disabled.
func NewBackend(ctx context.Context, kind, awsRegion string) (Backend, error) {
	switch kind {
	case "rekognition":
		b, err := NewRekognition(ctx, awsRegion)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "vision":
		b, err := NewVision(ctx)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "none", "":
		return nil, nil
	default:
		return nil, eris.Errorf("faces: unknown backend %q", kind)
	}
}

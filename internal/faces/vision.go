package faces

import (
	"context"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rotisserie/eris"
)

type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Vision is a Google Cloud Vision backend. Vision detects faces but has no
// identity comparison, so CompareFaces always reports ErrCompareUnsupported.
type Vision struct {
	client annotator
	closer func() error
}

// NewVision creates a Vision backend using application default credentials.
func NewVision(ctx context.Context) (*Vision, error) {
	c, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "faces: vision client")
	}
	return &Vision{client: c, closer: c.Close}, nil
}

// Close releases the gRPC connection.
func (v *Vision) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer()
}

// Name implements Backend.
func (v *Vision) Name() string { return "vision" }

// SupportsCompare is false: Vision detects faces but cannot match them.
func (v *Vision) SupportsCompare() bool { return false }

// DetectFaces implements Backend.
func (v *Vision) DetectFaces(ctx context.Context, jpeg []byte) (int, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: jpeg},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_FACE_DETECTION, MaxResults: 5}},
		}},
	})
	if err != nil {
		return 0, eris.Wrap(err, "vision: batch annotate")
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return 0, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return 0, eris.Errorf("vision: annotate error: %s", r0.Error.Message)
	}
	return len(r0.FaceAnnotations), nil
}

// CompareFaces implements Backend.
func (v *Vision) CompareFaces(context.Context, []byte, []byte, float64) (float64, error) {
	return 0, ErrCompareUnsupported
}

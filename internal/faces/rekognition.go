package faces

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rktypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rotisserie/eris"
)

// rekognitionAPI is the subset of the Rekognition client we call.
type rekognitionAPI interface {
	DetectFaces(ctx context.Context, in *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	CompareFaces(ctx context.Context, in *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

// Rekognition is an AWS Rekognition backend.
type Rekognition struct {
	api rekognitionAPI
}

// NewRekognition builds a backend from the default AWS credential chain.
func NewRekognition(ctx context.Context, region string) (*Rekognition, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "faces: load aws config")
	}
	return &Rekognition{api: rekognition.NewFromConfig(cfg)}, nil
}

// Name implements Backend.
func (r *Rekognition) Name() string { return "rekognition" }

// DetectFaces implements Backend.
func (r *Rekognition) DetectFaces(ctx context.Context, jpeg []byte) (int, error) {
	out, err := r.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &rktypes.Image{Bytes: jpeg},
		Attributes: []rktypes.Attribute{rktypes.AttributeDefault},
	})
	if err != nil {
		return 0, eris.Wrap(err, "rekognition: detect faces")
	}
	return len(out.FaceDetails), nil
}

// CompareFaces implements Backend.
func (r *Rekognition) CompareFaces(ctx context.Context, source, target []byte, threshold float64) (float64, error) {
	out, err := r.api.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &rktypes.Image{Bytes: source},
		TargetImage:         &rktypes.Image{Bytes: target},
		SimilarityThreshold: aws.Float32(float32(threshold)),
	})
	if err != nil {
		return 0, eris.Wrap(err, "rekognition: compare faces")
	}
	var best float64
	for _, m := range out.FaceMatches {
		if s := float64(aws.ToFloat32(m.Similarity)); s > best {
			best = s
		}
	}
	return best, nil
}

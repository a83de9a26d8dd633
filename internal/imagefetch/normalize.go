package imagefetch

import (
	"bytes"
	"image"
	"image/jpeg"

	// Decoders for formats commonly served by social CDNs.
	_ "image/gif"
	_ "image/png"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/webp"
)

// ToJPEG decodes any supported image and re-encodes it as JPEG so face
// backends that accept only JPEG/PNG can read it.
func ToJPEG(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, eris.New("imagefetch: empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "imagefetch: decode")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, eris.New("imagefetch: zero dimensions")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, eris.Wrap(err, "imagefetch: encode jpeg")
	}
	return buf.Bytes(), nil
}

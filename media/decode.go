package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/camden-git/siteguard/detection"
)

var decodableFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// DefaultMaxPixels caps decoded frames at 40 megapixels.
const DefaultMaxPixels = 40_000_000

// Decoder turns uploaded bytes into an RGB Image. Frames whose header
// declares more than MaxPixels pixels are rejected before any pixel buffer
// is allocated. Zero MaxPixels means DefaultMaxPixels.
type Decoder struct {
	MaxPixels int
}

// DecodeImage decodes data with the default pixel limit.
func DecodeImage(data []byte) (Image, error) {
	return Decoder{}.Decode(data)
}

// Decode accepts JPEG and PNG only. EXIF orientation is applied so that a
// phone capture comes out upright.
func (d Decoder) Decode(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty upload: %w", detection.ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("read image header: %v: %w", err, detection.ErrDecode)
	}
	if !decodableFormats[format] {
		return Image{}, fmt.Errorf("format %q: %w", format, detection.ErrDecode)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("zero dimensions %dx%d: %w", cfg.Width, cfg.Height, detection.ErrDecode)
	}
	limit := d.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return Image{}, fmt.Errorf("frame %dx%d exceeds %d pixels: %w", cfg.Width, cfg.Height, limit, detection.ErrUnsupportedInput)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %v: %w", format, err, detection.ErrDecode)
	}
	out := FromImage(img)
	if out.Empty() {
		return Image{}, fmt.Errorf("decoded image is empty: %w", detection.ErrDecode)
	}
	return out, nil
}

// EncodeJPEG renders img as a JPEG, used for captures and for backends that
// take encoded bytes.
func EncodeJPEG(img Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.ToNRGBA(), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG renders img losslessly.
func EncodePNG(img Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.ToNRGBA(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

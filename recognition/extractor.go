package recognition

import (
	"errors"
	"fmt"
	"image"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

// Extractor runs detection then embedding on a single-subject frame.
type Extractor struct {
	backend Backend
}

// NewExtractor wraps backend, which may be nil when the face capability is
// switched off.
func NewExtractor(backend Backend) *Extractor {
	return &Extractor{backend: backend}
}

// Available reports whether a backend is loaded.
func (e *Extractor) Available() bool {
	return e != nil && e.backend != nil
}

// BackendName names the loaded backend, or "" when none is loaded.
func (e *Extractor) BackendName() string {
	if !e.Available() {
		return ""
	}
	return e.backend.Name()
}

// Extract returns the embedding of the first face the detector reports.
// Frames with several people are accepted; only the first region is used.
func (e *Extractor) Extract(img media.Image) (detection.Embedding, image.Rectangle, error) {
	if !e.Available() {
		return nil, image.Rectangle{}, fmt.Errorf("face backend not loaded: %w", detection.ErrCapabilityUnavailable)
	}
	if img.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("empty frame: %w", detection.ErrUnsupportedInput)
	}

	region, vec, err := e.describe(img)
	if err != nil {
		return nil, region, err
	}
	if !vec.Valid() {
		return nil, region, fmt.Errorf("%s produced a %d-dimensional embedding, want %d: %w",
			e.backend.Name(), len(vec), detection.EmbeddingSize, detection.ErrCapabilityUnavailable)
	}
	return vec, region, nil
}

func (e *Extractor) describe(img media.Image) (image.Rectangle, detection.Embedding, error) {
	if d, ok := e.backend.(Describer); ok {
		region, vec, err := d.Describe(img)
		if err != nil && !errors.Is(err, detection.ErrNoFaceDetected) {
			err = fmt.Errorf("%s describe: %w", e.backend.Name(), err)
		}
		return region, vec, err
	}

	regions, err := e.backend.Locate(img)
	if err != nil {
		return image.Rectangle{}, nil, fmt.Errorf("%s locate: %w", e.backend.Name(), err)
	}
	if len(regions) == 0 {
		return image.Rectangle{}, nil, detection.ErrNoFaceDetected
	}
	region := regions[0]

	vec, err := e.backend.Encode(img, region)
	if err != nil {
		return region, nil, fmt.Errorf("%s encode: %w", e.backend.Name(), err)
	}
	return region, vec, nil
}

// Close releases the backend's models.
func (e *Extractor) Close() error {
	if !e.Available() {
		return nil
	}
	return e.backend.Close()
}

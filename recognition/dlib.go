package recognition

import (
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

const dlibJpegQuality = 95

// DlibBackend uses go-face. It works on encoded JPEG bytes and computes
// descriptors for every face it detects, so the Extractor goes through
// Describe. Encode re-runs recognition and picks the face that overlaps the
// requested region most.
type DlibBackend struct {
	mu  sync.Mutex
	rec *face.Recognizer
	cnn bool
}

func NewDlibBackend(modelsDir string, cnn bool) (*DlibBackend, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, errUnavailable("dlib models in %s: %v", modelsDir, err)
	}
	return &DlibBackend{rec: rec, cnn: cnn}, nil
}

func (b *DlibBackend) Name() string {
	if b.cnn {
		return "dlib-cnn"
	}
	return "dlib-hog"
}

func (b *DlibBackend) recognize(img media.Image) ([]face.Face, error) {
	data, err := media.EncodeJPEG(img, dlibJpegQuality)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var faces []face.Face
	if b.cnn {
		faces, err = b.rec.RecognizeCNN(data)
	} else {
		faces, err = b.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}
	return faces, nil
}

func (b *DlibBackend) Locate(img media.Image) ([]image.Rectangle, error) {
	faces, err := b.recognize(img)
	if err != nil {
		return nil, err
	}
	rects := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		rects[i] = f.Rectangle
	}
	return rects, nil
}

func (b *DlibBackend) Encode(img media.Image, region image.Rectangle) (detection.Embedding, error) {
	faces, err := b.recognize(img)
	if err != nil {
		return nil, err
	}
	best, bestIoU := -1, 0.0
	for i, f := range faces {
		if v := iou(f.Rectangle, region); v > bestIoU {
			best, bestIoU = i, v
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("no face overlaps %v: %w", region, detection.ErrNoFaceDetected)
	}
	return descriptor(faces[best]), nil
}

func (b *DlibBackend) Describe(img media.Image) (image.Rectangle, detection.Embedding, error) {
	faces, err := b.recognize(img)
	if err != nil {
		return image.Rectangle{}, nil, err
	}
	if len(faces) == 0 {
		return image.Rectangle{}, nil, detection.ErrNoFaceDetected
	}
	return faces[0].Rectangle, descriptor(faces[0]), nil
}

func descriptor(f face.Face) detection.Embedding {
	vec := make(detection.Embedding, len(f.Descriptor))
	copy(vec, f.Descriptor[:])
	return vec
}

func (b *DlibBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Close()
	return nil
}

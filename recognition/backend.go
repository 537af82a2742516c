// Package recognition turns a decoded frame into a face embedding and matches
// embeddings against an enrolled gallery.
package recognition

import (
	"fmt"
	"image"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
)

// Backend is a face detection and embedding implementation.
//
// Locate returns face regions in detector order. Encode computes the
// embedding for one region previously returned by Locate.
type Backend interface {
	Name() string
	Locate(img media.Image) ([]image.Rectangle, error)
	Encode(img media.Image, region image.Rectangle) (detection.Embedding, error)
	Close() error
}

// Describer is implemented by backends whose detector yields descriptors
// with the regions. Describe returns the first face and its embedding from
// one pass.
type Describer interface {
	Describe(img media.Image) (image.Rectangle, detection.Embedding, error)
}

// NewBackend builds the configured backend. When the backend's models cannot
// be loaded it logs the reason and returns nil; callers treat a nil Backend
// as the face capability being switched off.
func NewBackend(cfg config.FaceConfig, log *logger.Logger) Backend {
	log = log.With("component", "recognition", "backend", cfg.Backend)
	switch cfg.Backend {
	case config.FaceBackendStub:
		log.Warn("using deterministic stub face backend, not for production")
		return NewStubBackend()
	case config.FaceBackendDlib:
		b, err := NewDlibBackend(cfg.DlibModelsDir, cfg.Detector == config.FaceDetectorAccurate)
		if err != nil {
			log.Error("face capability unavailable", "error", err)
			return nil
		}
		log.Info("face backend ready", "detector", cfg.Detector)
		return b
	case config.FaceBackendDNN:
		b, err := NewDNNBackend(cfg, log)
		if err != nil {
			log.Error("face capability unavailable", "error", err)
			return nil
		}
		log.Info("face backend ready", "detector", cfg.Detector)
		return b
	default:
		log.Error("unknown face backend")
		return nil
	}
}

func errUnavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), detection.ErrCapabilityUnavailable)
}

// iou is the intersection over union of two rectangles.
func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

package recognition

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
)

const (
	ssdInputSize      = 300
	ssdConfThreshold  = 0.5
	embedInputSize    = 96
	cascadeMinFaceDim = 30
)

// DNNBackend detects faces with either a Haar cascade or the res10 SSD and
// embeds them with an OpenFace network. gocv nets and classifiers are not
// safe for concurrent use, so every call holds mu.
type DNNBackend struct {
	mu       sync.Mutex
	accurate bool

	cascade  gocv.CascadeClassifier
	detector gocv.Net
	embedder gocv.Net
}

func NewDNNBackend(cfg config.FaceConfig, log *logger.Logger) (*DNNBackend, error) {
	b := &DNNBackend{accurate: cfg.Detector == config.FaceDetectorAccurate}

	if _, err := os.Stat(cfg.EmbeddingModelPath); err != nil {
		return nil, errUnavailable("embedding model %s", cfg.EmbeddingModelPath)
	}
	b.embedder = gocv.ReadNet(cfg.EmbeddingModelPath, "")
	if b.embedder.Empty() {
		return nil, errUnavailable("embedding model %s could not be loaded", cfg.EmbeddingModelPath)
	}
	preferCUDA(&b.embedder, log)

	if b.accurate {
		b.detector = gocv.ReadNet(cfg.DNNNetModelPath, cfg.DNNNetConfigPath)
		if b.detector.Empty() {
			b.embedder.Close()
			return nil, errUnavailable("ssd detector %s/%s could not be loaded", cfg.DNNNetConfigPath, cfg.DNNNetModelPath)
		}
		preferCUDA(&b.detector, log)
		return b, nil
	}

	b.cascade = gocv.NewCascadeClassifier()
	if !b.cascade.Load(cfg.CascadePath) {
		b.cascade.Close()
		b.embedder.Close()
		return nil, errUnavailable("haar cascade %s could not be loaded", cfg.CascadePath)
	}
	return b, nil
}

// preferCUDA switches a net to CUDA and falls back to the CPU target.
func preferCUDA(net *gocv.Net, log *logger.Logger) {
	backendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	targetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if backendErr == nil && targetErr == nil {
		log.Info("dnn backend/target set to CUDA")
		return
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	log.Debug("CUDA not available, using CPU", "backend_error", backendErr, "target_error", targetErr)
}

func (b *DNNBackend) Name() string {
	if b.accurate {
		return "dnn-ssd"
	}
	return "dnn-haar"
}

func (b *DNNBackend) Locate(img media.Image) ([]image.Rectangle, error) {
	mat, err := media.ToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accurate {
		return b.locateSSD(mat), nil
	}
	return b.locateCascade(mat), nil
}

func (b *DNNBackend) locateCascade(mat gocv.Mat) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	return b.cascade.DetectMultiScaleWithParams(gray, 1.1, 5, 0,
		image.Pt(cascadeMinFaceDim, cascadeMinFaceDim), image.Pt(0, 0))
}

// locateSSD parses the [1,1,N,7] output of the res10 detector.
func (b *DNNBackend) locateSSD(mat gocv.Mat) []image.Rectangle {
	w, h := float32(mat.Cols()), float32(mat.Rows())

	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(ssdInputSize, ssdInputSize),
		gocv.NewScalar(104.0, 177.0, 123.0, 0), false, false)
	defer blob.Close()

	b.detector.SetInput(blob, "")
	out := b.detector.Forward("")
	defer out.Close()

	sizes := out.Size()
	if len(sizes) != 4 || sizes[2] == 0 {
		return nil
	}
	rows := out.Reshape(1, sizes[2])
	defer rows.Close()

	var faces []image.Rectangle
	for i := 0; i < sizes[2]; i++ {
		if rows.GetFloatAt(i, 2) < ssdConfThreshold {
			continue
		}
		x0 := int(max(0, rows.GetFloatAt(i, 3)*w))
		y0 := int(max(0, rows.GetFloatAt(i, 4)*h))
		x1 := int(min(w, rows.GetFloatAt(i, 5)*w))
		y1 := int(min(h, rows.GetFloatAt(i, 6)*h))
		if x1 > x0 && y1 > y0 {
			faces = append(faces, image.Rect(x0, y0, x1, y1))
		}
	}
	return faces
}

func (b *DNNBackend) Encode(img media.Image, region image.Rectangle) (detection.Embedding, error) {
	crop := img.Crop(region)
	if crop.Empty() {
		return nil, fmt.Errorf("face region %v outside frame: %w", region, detection.ErrNoFaceDetected)
	}
	mat, err := media.ToMat(crop)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(embedInputSize, embedInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	b.mu.Lock()
	b.embedder.SetInput(blob, "")
	out := b.embedder.Forward("")
	b.mu.Unlock()
	defer out.Close()

	flat := out.Reshape(1, 1)
	defer flat.Close()
	vec := make(detection.Embedding, flat.Cols())
	for i := range vec {
		vec[i] = flat.GetFloatAt(0, i)
	}
	return normalize(vec), nil
}

func (b *DNNBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.embedder.Close()
	if b.accurate {
		return b.detector.Close()
	}
	return b.cascade.Close()
}

// normalize scales v to unit length in place. A zero vector is left as is.
func normalize(v detection.Embedding) detection.Embedding {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

package media

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/disintegration/imaging"

	"github.com/camden-git/siteguard/logger"
)

const (
	CaptureJpegQuality   = 85
	CaptureFileExtension = ".jpg"
	// CaptureMaxSize bounds the longest side of a stored capture.
	CaptureMaxSize = 1600
)

// Processor stores downscaled captures and debug overlays through a Store.
type Processor struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewProcessor(store Store, log *logger.Logger) *Processor {
	return &Processor{store: store, log: log, now: time.Now}
}

// SaveCapture writes a JPEG copy of img under captures/<kind>/<yyyy-mm-dd>/.
func (p *Processor) SaveCapture(kind CaptureKind, img Image) (string, error) {
	return p.save(AssetTypeCapture, path.Join(string(kind), p.now().Format("2006-01-02")), img)
}

// SaveDebug writes an annotated overlay under debug/<kind>/.
func (p *Processor) SaveDebug(kind CaptureKind, img Image) (string, error) {
	return p.save(AssetTypeDebug, string(kind), img)
}

func (p *Processor) save(assetType AssetType, dir string, img Image) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("invalid image dimensions: %dx%d", img.Width, img.Height)
	}
	src := img.ToNRGBA()
	var out = imaging.Clone(src)
	if img.Width > CaptureMaxSize || img.Height > CaptureMaxSize {
		out = imaging.Fit(src, CaptureMaxSize, CaptureMaxSize, imaging.Lanczos)
	}

	reader, writer := io.Pipe()
	go func() {
		err := imaging.Encode(writer, out, imaging.JPEG, imaging.JPEGQuality(CaptureJpegQuality))
		if err != nil {
			p.log.Error("failed to encode capture", "error", err)
			writer.CloseWithError(fmt.Errorf("capture encoding failed: %w", err))
			return
		}
		writer.Close()
	}()

	rel, err := p.store.Save(assetType, dir, "", CaptureFileExtension, reader)
	reader.Close()
	if err != nil {
		return "", fmt.Errorf("failed to save %s via store: %w", assetType, err)
	}
	return rel, nil
}

// SaveRaw stores the original upload bytes unchanged.
func (p *Processor) SaveRaw(kind CaptureKind, ext string, data []byte) (string, error) {
	rel, err := p.store.Save(AssetTypeCapture, path.Join(string(kind), p.now().Format("2006-01-02")), "", ext, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save raw capture via store: %w", err)
	}
	return rel, nil
}

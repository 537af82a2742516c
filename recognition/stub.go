package recognition

import (
	"fmt"
	"image"
	"math"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

const (
	stubGridCols = 16
	stubGridRows = 8
	// stubMinStdDev is the luma standard deviation below which a frame is
	// treated as blank and no face is reported.
	stubMinStdDev = 2.0
)

// StubBackend is a deterministic stand-in for development and tests.
//
// A frame with any visible structure yields exactly one face covering the
// whole frame. A flat frame yields none. The embedding is the 16x8 grid of
// mean luma values, zero-meaned and scaled to unit length, so identical
// frames always produce identical embeddings.
type StubBackend struct{}

func NewStubBackend() *StubBackend { return &StubBackend{} }

func (StubBackend) Name() string { return "stub" }

func (StubBackend) Locate(img media.Image) ([]image.Rectangle, error) {
	if img.Empty() {
		return nil, nil
	}
	gray := img.Gray()
	var sum, sq float64
	for _, v := range gray {
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	n := float64(len(gray))
	mean := sum / n
	if math.Sqrt(math.Max(0, sq/n-mean*mean)) < stubMinStdDev {
		return nil, nil
	}
	return []image.Rectangle{img.Bounds()}, nil
}

func (StubBackend) Encode(img media.Image, region image.Rectangle) (detection.Embedding, error) {
	crop := img.Crop(region)
	if crop.Empty() {
		return nil, fmt.Errorf("face region %v outside frame: %w", region, detection.ErrNoFaceDetected)
	}
	gray := crop.Gray()

	var sums [stubGridRows * stubGridCols]float64
	var counts [stubGridRows * stubGridCols]int
	for y := 0; y < crop.Height; y++ {
		gy := y * stubGridRows / crop.Height
		for x := 0; x < crop.Width; x++ {
			gx := x * stubGridCols / crop.Width
			sums[gy*stubGridCols+gx] += float64(gray[y*crop.Width+x])
			counts[gy*stubGridCols+gx]++
		}
	}

	vec := make(detection.Embedding, detection.EmbeddingSize)
	var total float64
	var filled int
	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= float64(counts[i])
			total += sums[i]
			filled++
		}
	}
	mean := total / float64(max(filled, 1))
	for i := range vec {
		if counts[i] > 0 {
			vec[i] = float32(sums[i] - mean)
		}
	}
	return normalize(vec), nil
}

func (StubBackend) Close() error { return nil }

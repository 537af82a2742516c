// Package plates finds a licence plate in a frame and reads its text.
package plates

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

// Edge and shape parameters of the locator pipeline.
const (
	bilateralDiameter   = 11
	bilateralSigmaColor = 17
	bilateralSigmaSpace = 17
	cannyLow            = 30
	cannyHigh           = 200
	polyEpsilonFactor   = 0.02
	plateCorners        = 4
)

// LocatorConfig bounds which contours count as plate-shaped.
type LocatorConfig struct {
	MinAspect   float64
	MaxAspect   float64
	MaxContours int
}

func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{MinAspect: 1.5, MaxAspect: 5.0, MaxContours: 10}
}

func LocatorConfigFrom(cfg config.PlateConfig) LocatorConfig {
	return LocatorConfig{MinAspect: cfg.MinAspect, MaxAspect: cfg.MaxAspect, MaxContours: cfg.MaxContours}
}

// Location is a located plate: the winning candidate, the colour crop and
// the inverted Otsu binarisation of the smoothed grey crop that a Reader
// consumes.
type Location struct {
	Candidate detection.PlateCandidate
	Crop      media.Image
	Binary    media.Image
}

// contourShape is one contour after polygon approximation.
type contourShape struct {
	idx    int
	Rect   image.Rectangle
	Points int
	Area   float64
}

type Locator struct {
	cfg LocatorConfig
}

func NewLocator(cfg LocatorConfig) *Locator {
	return &Locator{cfg: cfg}
}

// Locate runs grey, bilateral, Canny and contour extraction and returns the
// largest 4-corner contour whose bounding box has a plate-like aspect ratio.
func (l *Locator) Locate(img media.Image) (Location, error) {
	if img.Empty() {
		return Location{}, fmt.Errorf("empty frame: %w", detection.ErrUnsupportedInput)
	}
	mat, err := media.ToMat(img)
	if err != nil {
		return Location{}, fmt.Errorf("plate frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.BilateralFilter(gray, &smooth, bilateralDiameter, bilateralSigmaColor, bilateralSigmaSpace)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(smooth, &edges, cannyLow, cannyHigh)

	shapes := extractShapes(edges, l.cfg.MaxContours)
	cand, ok := selectPlate(shapes, l.cfg.MinAspect, l.cfg.MaxAspect)
	if !ok {
		return Location{}, detection.ErrNoPlateDetected
	}

	binary, err := binarizeRegion(smooth, cand.Rect)
	if err != nil {
		return Location{}, err
	}
	return Location{
		Candidate: cand,
		Crop:      img.Crop(cand.Rect),
		Binary:    binary,
	}, nil
}

// extractShapes returns the n largest contours by area, approximated.
func extractShapes(edges gocv.Mat, n int) []contourShape {
	contours := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	all := make([]contourShape, contours.Size())
	for i := range all {
		all[i] = contourShape{idx: i, Area: gocv.ContourArea(contours.At(i))}
	}
	shapes := rankShapes(all, n)
	for i := range shapes {
		pv := contours.At(shapes[i].idx)
		approx := gocv.ApproxPolyDP(pv, polyEpsilonFactor*gocv.ArcLength(pv, true), true)
		shapes[i].Rect = gocv.BoundingRect(approx)
		shapes[i].Points = approx.Size()
		approx.Close()
	}
	return shapes
}

// rankShapes orders shapes by contour area, largest first, keeping the
// original order on ties, and keeps at most n.
func rankShapes(shapes []contourShape, n int) []contourShape {
	out := append([]contourShape(nil), shapes...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Area > out[b].Area })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// selectPlate scans shapes in order and keeps the eligible one with the
// largest bounding-box area. Only a strictly larger area replaces the current
// best, so the first of equal candidates wins.
func selectPlate(shapes []contourShape, minAspect, maxAspect float64) (detection.PlateCandidate, bool) {
	var best detection.PlateCandidate
	found := false
	for _, s := range shapes {
		if s.Points != plateCorners {
			continue
		}
		w, h := s.Rect.Dx(), s.Rect.Dy()
		if w <= 0 || h <= 0 {
			continue
		}
		aspect := float64(w) / float64(h)
		if aspect < minAspect || aspect > maxAspect {
			continue
		}
		if !found || w*h > best.Area() {
			best = detection.PlateCandidate{Rect: s.Rect, Points: s.Points, AspectRatio: aspect, ContourArea: s.Area}
			found = true
		}
	}
	return best, found
}

package plates

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

// DefaultMinDimension is the smallest crop width or height worth reading.
const DefaultMinDimension = 8

// Reader reads the text of a binarised, single-line plate crop.
// Confidence is always within [0, 1].
type Reader interface {
	Name() string
	Read(ctx context.Context, plate media.Image) (detection.PlateReading, error)
}

// checkReadable rejects near-degenerate crops.
func checkReadable(plate media.Image, minDim int) error {
	if plate.Empty() || plate.Width < minDim || plate.Height < minDim {
		return fmt.Errorf("crop %dx%d below %dpx: %w", plate.Width, plate.Height, minDim, detection.ErrUnreadablePlate)
	}
	return nil
}

var plateNoise = strings.NewReplacer(" ", "", ".", "", "·", "", "_", "-")

// NormalizePlate upper-cases text and strips spacing and separators other
// than a single hyphen, so stored plates and readings compare equal.
func NormalizePlate(text string) string {
	s := strings.ToUpper(strings.TrimSpace(text))
	s = plateNoise.Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// PlateKey is the hyphen-free form used for lookups, so "ABC-1234" and
// "ABC1234" refer to the same vehicle.
func PlateKey(text string) string {
	return strings.ReplaceAll(NormalizePlate(text), "-", "")
}

// CompilePattern compiles the configured plate pattern; an empty pattern
// accepts any non-empty text.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return regexp.MustCompile(`.+`), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid plate pattern %q: %w", pattern, err)
	}
	return re, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

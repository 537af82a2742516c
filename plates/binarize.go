package plates

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

// binarizeRegion crops gray to r and applies an inverted Otsu threshold, so
// dark characters on a light plate come out white.
func binarizeRegion(gray gocv.Mat, r image.Rectangle) (media.Image, error) {
	r = r.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if r.Empty() {
		return media.Image{}, fmt.Errorf("plate region %v: %w", r, detection.ErrUnreadablePlate)
	}
	region := gray.Region(r)
	defer region.Close()
	crop := region.Clone()
	defer crop.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(crop, &bin, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)
	return media.FromMat(bin)
}

// Binarize converts a colour plate crop to the inverted Otsu binary form.
func Binarize(img media.Image) (media.Image, error) {
	if img.Empty() {
		return media.Image{}, fmt.Errorf("empty crop: %w", detection.ErrUnreadablePlate)
	}
	mat, err := media.ToMat(img)
	if err != nil {
		return media.Image{}, err
	}
	defer mat.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	return binarizeRegion(gray, image.Rect(0, 0, img.Width, img.Height))
}

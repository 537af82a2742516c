package media

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ToMat builds a BGR gocv.Mat from img. The caller closes the Mat.
func ToMat(img Image) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	bgr := make([]byte, len(img.Pix))
	for i := 0; i+2 < len(img.Pix); i += 3 {
		bgr[i] = img.Pix[i+2]
		bgr[i+1] = img.Pix[i+1]
		bgr[i+2] = img.Pix[i]
	}
	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("mat from bytes: %w", err)
	}
	return mat, nil
}

// FromMat converts an 8-bit BGR or single-channel Mat back to an Image.
func FromMat(mat gocv.Mat) (Image, error) {
	if mat.Empty() {
		return Image{}, fmt.Errorf("empty mat")
	}
	w, h := mat.Cols(), mat.Rows()
	data := mat.ToBytes()
	switch mat.Channels() {
	case 1:
		return FromGray(w, h, data), nil
	case 3:
		out := Image{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
		for i := 0; i+2 < len(out.Pix); i += 3 {
			out.Pix[i] = data[i+2]
			out.Pix[i+1] = data[i+1]
			out.Pix[i+2] = data[i]
		}
		return out, nil
	default:
		return Image{}, fmt.Errorf("unsupported channel count %d", mat.Channels())
	}
}

package media

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Image is a decoded frame as tightly packed 8-bit RGB triples, row-major.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// FromImage converts any image.Image into an RGB Image. Alpha is dropped.
func FromImage(src image.Image) Image {
	nrgba := imaging.Clone(src)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	out := Image{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			o := (y*w + x) * 3
			out.Pix[o] = row[x*4]
			out.Pix[o+1] = row[x*4+1]
			out.Pix[o+2] = row[x*4+2]
		}
	}
	return out
}

func (m Image) Empty() bool {
	return m.Width <= 0 || m.Height <= 0 || len(m.Pix) < m.Width*m.Height*3
}

func (m Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At returns the RGB triple at (x, y).
func (m Image) At(x, y int) (r, g, b uint8) {
	o := (y*m.Width + x) * 3
	return m.Pix[o], m.Pix[o+1], m.Pix[o+2]
}

// ToNRGBA returns a standard library image for encoding.
func (m Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r, g, b := m.At(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}

// Crop returns a copy of the region r clipped to the image bounds.
func (m Image) Crop(r image.Rectangle) Image {
	r = r.Intersect(m.Bounds())
	if r.Empty() {
		return Image{}
	}
	out := Image{Width: r.Dx(), Height: r.Dy(), Pix: make([]uint8, r.Dx()*r.Dy()*3)}
	for y := 0; y < out.Height; y++ {
		src := ((r.Min.Y+y)*m.Width + r.Min.X) * 3
		copy(out.Pix[y*out.Width*3:(y+1)*out.Width*3], m.Pix[src:src+out.Width*3])
	}
	return out
}

// Gray returns the luma plane using the ITU-R 601 weights.
func (m Image) Gray() []uint8 {
	out := make([]uint8, m.Width*m.Height)
	for i := range out {
		r, g, b := uint32(m.Pix[i*3]), uint32(m.Pix[i*3+1]), uint32(m.Pix[i*3+2])
		out[i] = uint8((299*r + 587*g + 114*b + 500) / 1000)
	}
	return out
}

// FromGray expands a single-channel plane into an RGB Image.
func FromGray(w, h int, plane []uint8) Image {
	out := Image{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
	for i, v := range plane[:w*h] {
		out.Pix[i*3] = v
		out.Pix[i*3+1] = v
		out.Pix[i*3+2] = v
	}
	return out
}

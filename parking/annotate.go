package parking

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

var stateColors = map[detection.OccupancyState]color.RGBA{
	detection.StateOccupied: {R: 220, G: 40, B: 40},
	detection.StateFree:     {R: 40, G: 200, B: 60},
	detection.StateUnknown:  {R: 150, G: 150, B: 150},
}

// Annotate draws each mapped space's cell and id on a copy of img.
func Annotate(img media.Image, snap detection.OccupancySnapshot) (media.Image, error) {
	mat, err := media.ToMat(img)
	if err != nil {
		return media.Image{}, err
	}
	defer mat.Close()

	if snap.GridCols > 0 && snap.GridRows > 0 {
		cellW, cellH := img.Width/snap.GridCols, img.Height/snap.GridRows
		for id, sp := range snap.Spaces {
			if sp.Row < 0 || sp.Col < 0 {
				continue
			}
			r := image.Rect(sp.Col*cellW, sp.Row*cellH, (sp.Col+1)*cellW, (sp.Row+1)*cellH)
			c := stateColors[sp.State]
			gocv.Rectangle(&mat, r.Inset(1), c, 2)
			gocv.PutText(&mat, id, image.Pt(r.Min.X+4, r.Min.Y+16), gocv.FontHersheySimplex, 0.5, c, 1)
		}
	}
	return media.FromMat(mat)
}

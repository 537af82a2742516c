// Package parking infers per-space occupancy from a single lot image.
package parking

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

const (
	blurKernel     = 5
	threshBlock    = 11
	threshConstant = 2
)

// OverflowPolicy decides what happens to spaces that do not fit the grid.
type OverflowPolicy string

const (
	// OverflowUnknown reports spaces without a cell as unknown.
	OverflowUnknown OverflowPolicy = config.OverflowUnknown
	// OverflowExpand adds rows until every space has a cell.
	OverflowExpand OverflowPolicy = config.OverflowExpand
)

// Config tunes the analyzer. Zero Columns and Rows give the square
// ceil(sqrt(N)) grid.
type Config struct {
	Threshold float64
	Columns   int
	Rows      int
	Overflow  OverflowPolicy
}

func DefaultConfig() Config {
	return Config{Threshold: 0.15, Overflow: OverflowUnknown}
}

func ConfigFrom(cfg config.ParkingConfig) Config {
	return Config{
		Threshold: cfg.OccupancyThreshold,
		Columns:   cfg.GridColumns,
		Rows:      cfg.GridRows,
		Overflow:  OverflowPolicy(cfg.OverflowPolicy),
	}
}

type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.Overflow == "" {
		cfg.Overflow = OverflowUnknown
	}
	return &Analyzer{cfg: cfg}
}

// Analyze returns a snapshot with exactly one entry per space id. Spaces are
// assigned to grid cells in row-major order.
func (a *Analyzer) Analyze(img media.Image, spaceIDs []string) (detection.OccupancySnapshot, error) {
	if err := validateSpaces(spaceIDs); err != nil {
		return detection.OccupancySnapshot{}, err
	}
	if img.Empty() {
		return detection.OccupancySnapshot{}, fmt.Errorf("empty lot image: %w", detection.ErrUnsupportedInput)
	}
	mask, err := foregroundMask(img)
	if err != nil {
		return detection.OccupancySnapshot{}, err
	}
	rows, cols := gridLayout(len(spaceIDs), a.cfg)
	return scoreGrid(mask, img.Width, img.Height, rows, cols, spaceIDs, a.cfg.Threshold), nil
}

func validateSpaces(spaceIDs []string) error {
	if len(spaceIDs) == 0 {
		return fmt.Errorf("no parking spaces given: %w", detection.ErrUnsupportedInput)
	}
	seen := make(map[string]struct{}, len(spaceIDs))
	for _, id := range spaceIDs {
		if id == "" {
			return fmt.Errorf("empty space id: %w", detection.ErrUnsupportedInput)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate space id %q: %w", id, detection.ErrUnsupportedInput)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// foregroundMask blurs and adaptively thresholds the grey image. Non-zero
// mask bytes mark textured, likely occupied, pixels.
func foregroundMask(img media.Image) ([]uint8, error) {
	mat, err := media.ToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.AdaptiveThreshold(blurred, &mask, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, threshBlock, threshConstant)

	return mask.ToBytes(), nil
}

// gridLayout returns rows and columns for n spaces.
func gridLayout(n int, cfg Config) (rows, cols int) {
	side := int(math.Ceil(math.Sqrt(float64(n))))
	rows, cols = side, side
	if cfg.Columns > 0 {
		cols = cfg.Columns
		rows = (n + cols - 1) / cols
		if cfg.Rows > 0 {
			rows = cfg.Rows
		}
	} else if cfg.Rows > 0 {
		rows = cfg.Rows
	}
	if cfg.Overflow == OverflowExpand && rows*cols < n {
		rows = (n + cols - 1) / cols
	}
	return rows, cols
}

// scoreGrid partitions a w x h mask into rows x cols cells of integer size
// and scores the cell of each space. Remainder pixels on the right and
// bottom edges belong to no cell.
func scoreGrid(mask []uint8, w, h, rows, cols int, spaceIDs []string, threshold float64) detection.OccupancySnapshot {
	snap := detection.OccupancySnapshot{
		GridRows: rows,
		GridCols: cols,
		Spaces:   make(map[string]detection.SpaceOccupancy, len(spaceIDs)),
	}
	cellW, cellH := 0, 0
	if cols > 0 && rows > 0 {
		cellW, cellH = w/cols, h/rows
	}

	for i, id := range spaceIDs {
		if i >= rows*cols {
			snap.Spaces[id] = detection.SpaceOccupancy{State: detection.StateUnknown, Row: -1, Col: -1}
			continue
		}
		r, c := i/cols, i%cols
		if cellW == 0 || cellH == 0 || len(mask) < w*h {
			snap.Spaces[id] = detection.SpaceOccupancy{State: detection.StateUnknown, Row: r, Col: c}
			continue
		}

		var set int
		for y := r * cellH; y < (r+1)*cellH; y++ {
			row := mask[y*w+c*cellW : y*w+(c+1)*cellW]
			for _, v := range row {
				if v != 0 {
					set++
				}
			}
		}
		frac := float64(set) / float64(cellW*cellH)
		state := detection.StateFree
		if frac > threshold {
			state = detection.StateOccupied
		}
		snap.Spaces[id] = detection.SpaceOccupancy{State: state, Fraction: frac, Row: r, Col: c}
	}
	return snap
}

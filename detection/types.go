// Package detection holds the value objects that flow between the
// recognition, plate and parking pipelines and the callers that persist them.
package detection

import (
	"image"
	"time"
)

// EmbeddingSize is the dimension every face embedding must have.
const EmbeddingSize = 128

// Embedding is a fixed-length face descriptor.
type Embedding []float32

// Valid reports whether the embedding has the expected dimension.
func (e Embedding) Valid() bool {
	return len(e) == EmbeddingSize
}

// Clone returns a copy that does not share the backing array.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// FaceEmbedding is an enrolled embedding for one user. It is never updated in
// place: re-enrollment produces a new value that supersedes the old one.
type FaceEmbedding struct {
	UserID    string    `json:"user_id"`
	Vector    Embedding `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchReason explains a FaceMatchResult.
type MatchReason string

const (
	MatchReasonMatched   MatchReason = "matched"
	MatchReasonNoGallery MatchReason = "no_gallery"
	MatchReasonNoMatch   MatchReason = "no_match"
)

// FaceMatchResult is the outcome of comparing a query against a gallery.
// UserID is empty unless Matched is true. Distance is the best distance seen,
// zero when the gallery was empty.
type FaceMatchResult struct {
	UserID   string      `json:"user_id,omitempty"`
	Matched  bool        `json:"matched"`
	Distance float64     `json:"distance"`
	Reason   MatchReason `json:"reason"`
	Compared int         `json:"compared"`
	Skipped  int         `json:"skipped,omitempty"`
}

// PlateCandidate is the winning plate-shaped contour.
type PlateCandidate struct {
	Rect        image.Rectangle `json:"-"`
	Points      int             `json:"points"`
	AspectRatio float64         `json:"aspect_ratio"`
	ContourArea float64         `json:"contour_area"`
}

// X returns the left edge of the bounding rectangle.
func (c PlateCandidate) X() int { return c.Rect.Min.X }

// Y returns the top edge of the bounding rectangle.
func (c PlateCandidate) Y() int { return c.Rect.Min.Y }

// W returns the bounding rectangle width.
func (c PlateCandidate) W() int { return c.Rect.Dx() }

// H returns the bounding rectangle height.
func (c PlateCandidate) H() int { return c.Rect.Dy() }

// Area is the bounding-box area used to rank candidates.
func (c PlateCandidate) Area() int { return c.Rect.Dx() * c.Rect.Dy() }

// BoundingBox is the JSON form of a rectangle.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Box returns the candidate rectangle as x, y, w, h.
func (c PlateCandidate) Box() BoundingBox {
	return BoundingBox{X: c.X(), Y: c.Y(), W: c.W(), H: c.H()}
}

// PlateReading is the text read from a plate crop.
type PlateReading struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OccupancyState is the per-space verdict.
type OccupancyState string

const (
	StateOccupied OccupancyState = "occupied"
	StateFree     OccupancyState = "free"
	StateUnknown  OccupancyState = "unknown"
)

// SpaceOccupancy is the verdict for one space. Row and Col are -1 when the
// space could not be mapped to a grid cell.
type SpaceOccupancy struct {
	State    OccupancyState `json:"state"`
	Fraction float64        `json:"fraction"`
	Row      int            `json:"row"`
	Col      int            `json:"col"`
}

// Known reports whether the space has a definite occupied/free verdict.
func (s SpaceOccupancy) Known() bool {
	return s.State == StateOccupied || s.State == StateFree
}

// OccupancySnapshot covers every requested space identifier exactly once.
type OccupancySnapshot struct {
	GridRows int                       `json:"grid_rows"`
	GridCols int                       `json:"grid_cols"`
	Spaces   map[string]SpaceOccupancy `json:"spaces"`
}

// Occupied returns the boolean verdict for a space and whether it is known.
func (s OccupancySnapshot) Occupied(spaceID string) (occupied bool, known bool) {
	sp, ok := s.Spaces[spaceID]
	if !ok || !sp.Known() {
		return false, false
	}
	return sp.State == StateOccupied, true
}

// Counts returns the number of occupied, free and unknown spaces.
func (s OccupancySnapshot) Counts() (occupied, free, unknown int) {
	for _, sp := range s.Spaces {
		switch sp.State {
		case StateOccupied:
			occupied++
		case StateFree:
			free++
		default:
			unknown++
		}
	}
	return occupied, free, unknown
}

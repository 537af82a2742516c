package recognition

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

func unit(idx int) detection.Embedding {
	v := make(detection.Embedding, detection.EmbeddingSize)
	v[idx] = 1
	return v
}

func scaled(v detection.Embedding, f float32) detection.Embedding {
	out := v.Clone()
	for i := range out {
		out[i] *= f
	}
	return out
}

func TestMatchEmptyGallery(t *testing.T) {
	res := Match(unit(0), nil, DefaultTolerance)
	if res.Matched || res.UserID != "" {
		t.Fatalf("empty gallery matched: %+v", res)
	}
	if res.Reason != detection.MatchReasonNoGallery {
		t.Fatalf("reason = %q, want no_gallery", res.Reason)
	}
}

func TestMatchIdenticalEntry(t *testing.T) {
	query := unit(3)
	gallery := []GalleryEntry{
		{UserID: "alice", Vector: unit(1)},
		{UserID: "bob", Vector: query.Clone()},
	}
	res := Match(query, gallery, DefaultTolerance)
	if !res.Matched || res.UserID != "bob" {
		t.Fatalf("got %+v, want bob", res)
	}
	if res.Distance > 1e-9 {
		t.Fatalf("distance = %g, want ~0", res.Distance)
	}
	if res.Compared != 2 {
		t.Fatalf("compared = %d", res.Compared)
	}
}

func TestMatchPicksSmallestDistance(t *testing.T) {
	query := unit(0)
	// both within tolerance; the second is closer
	near := query.Clone()
	near[1] = 0.1
	far := query.Clone()
	far[1] = 0.5
	gallery := []GalleryEntry{{UserID: "far", Vector: far}, {UserID: "near", Vector: near}}

	res := Match(query, gallery, DefaultTolerance)
	if res.UserID != "near" {
		t.Fatalf("best match = %q, want near", res.UserID)
	}
}

func TestMatchTieKeepsFirst(t *testing.T) {
	query := unit(0)
	a := query.Clone()
	a[1] = 0.2
	b := query.Clone()
	b[2] = 0.2
	res := Match(query, []GalleryEntry{{UserID: "first", Vector: a}, {UserID: "second", Vector: b}}, DefaultTolerance)
	if res.UserID != "first" {
		t.Fatalf("tie winner = %q, want first", res.UserID)
	}
}

func TestMatchToleranceBoundary(t *testing.T) {
	query := make(detection.Embedding, detection.EmbeddingSize)
	at := make(detection.Embedding, detection.EmbeddingSize)
	at[0] = 0.5 // exactly representable
	over := make(detection.Embedding, detection.EmbeddingSize)
	over[0] = 0.75

	if res := Match(query, []GalleryEntry{{UserID: "u", Vector: at}}, 0.5); !res.Matched {
		t.Fatalf("distance equal to tolerance should match: %+v", res)
	}
	res := Match(query, []GalleryEntry{{UserID: "u", Vector: over}}, 0.5)
	if res.Matched || res.UserID != "" {
		t.Fatalf("distance above tolerance matched: %+v", res)
	}
	if res.Reason != detection.MatchReasonNoMatch || res.Distance != 0.75 {
		t.Fatalf("got %+v", res)
	}
}

func TestMatchSkipsWrongDimension(t *testing.T) {
	res := Match(unit(0), []GalleryEntry{{UserID: "short", Vector: detection.Embedding{1, 2}}}, DefaultTolerance)
	if res.Matched || res.Skipped != 1 || res.Compared != 0 {
		t.Fatalf("got %+v", res)
	}
}

func TestDistanceOrthogonalUnitVectors(t *testing.T) {
	if d := Distance(unit(0), unit(1)); math.Abs(d-math.Sqrt2) > 1e-9 {
		t.Fatalf("distance = %g, want sqrt(2)", d)
	}
	if d := Distance(unit(0), scaled(unit(0), 1)); d != 0 {
		t.Fatalf("distance = %g, want 0", d)
	}
}

func gradient(w, h int, phase int) media.Image {
	img := media.Image{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*7 + y*3 + phase) % 256)
			o := (y*w + x) * 3
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v/2, 255-v
		}
	}
	return img
}

func TestExtractorStubRoundTrip(t *testing.T) {
	ex := NewExtractor(NewStubBackend())

	enrolled, _, err := ex.Extract(gradient(64, 48, 0))
	if err != nil {
		t.Fatalf("enroll extract: %v", err)
	}
	if len(enrolled) != detection.EmbeddingSize {
		t.Fatalf("embedding length = %d", len(enrolled))
	}
	query, _, err := ex.Extract(gradient(64, 48, 0))
	if err != nil {
		t.Fatalf("verify extract: %v", err)
	}

	res := Match(query, []GalleryEntry{{UserID: "u1", Vector: enrolled}}, DefaultTolerance)
	if !res.Matched || res.UserID != "u1" || res.Distance > 1e-6 {
		t.Fatalf("round trip = %+v", res)
	}
}

func TestExtractorNoFace(t *testing.T) {
	flat := media.Image{Width: 10, Height: 10, Pix: make([]uint8, 300)}
	_, _, err := NewExtractor(NewStubBackend()).Extract(flat)
	if !errors.Is(err, detection.ErrNoFaceDetected) {
		t.Fatalf("err = %v, want ErrNoFaceDetected", err)
	}
}

func TestExtractorUnavailable(t *testing.T) {
	ex := NewExtractor(nil)
	if ex.Available() {
		t.Fatalf("nil backend reported available")
	}
	if _, _, err := ex.Extract(gradient(8, 8, 0)); !errors.Is(err, detection.ErrCapabilityUnavailable) {
		t.Fatalf("err = %v, want ErrCapabilityUnavailable", err)
	}
}

type fakeBackend struct {
	located int
	regions []image.Rectangle
	dim     int
	encoded []image.Rectangle
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Locate(media.Image) ([]image.Rectangle, error) {
	f.located++
	return f.regions, nil
}
func (f *fakeBackend) Encode(_ media.Image, r image.Rectangle) (detection.Embedding, error) {
	f.encoded = append(f.encoded, r)
	return make(detection.Embedding, f.dim), nil
}
func (f *fakeBackend) Close() error { return nil }

func TestExtractorUsesFirstRegion(t *testing.T) {
	fb := &fakeBackend{
		regions: []image.Rectangle{image.Rect(5, 5, 10, 10), image.Rect(0, 0, 20, 20)},
		dim:     detection.EmbeddingSize,
	}
	_, region, err := NewExtractor(fb).Extract(gradient(32, 32, 0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if region != fb.regions[0] || len(fb.encoded) != 1 || fb.encoded[0] != fb.regions[0] {
		t.Fatalf("encoded %v, want first region only", fb.encoded)
	}
}

// describingBackend answers region and embedding together.
type describingBackend struct {
	fakeBackend
	described int
	region    image.Rectangle
}

func (d *describingBackend) Describe(media.Image) (image.Rectangle, detection.Embedding, error) {
	d.described++
	if d.region.Empty() {
		return image.Rectangle{}, nil, detection.ErrNoFaceDetected
	}
	return d.region, unit(3), nil
}

func TestExtractorPrefersSinglePassDescribe(t *testing.T) {
	db := &describingBackend{region: image.Rect(2, 2, 12, 12)}
	vec, region, err := NewExtractor(db).Extract(gradient(32, 32, 0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if region != db.region || vec[3] != 1 {
		t.Fatalf("got %v %v", region, vec[:4])
	}
	if db.described != 1 || db.located != 0 || len(db.encoded) != 0 {
		t.Fatalf("describe=%d locate=%d encode=%d, want a single Describe", db.described, db.located, len(db.encoded))
	}

	empty := &describingBackend{}
	if _, _, err := NewExtractor(empty).Extract(gradient(32, 32, 0)); !errors.Is(err, detection.ErrNoFaceDetected) {
		t.Fatalf("err = %v, want ErrNoFaceDetected", err)
	}
}

func TestExtractorRejectsWrongDimension(t *testing.T) {
	fb := &fakeBackend{regions: []image.Rectangle{image.Rect(0, 0, 4, 4)}, dim: 512}
	if _, _, err := NewExtractor(fb).Extract(gradient(8, 8, 0)); err == nil {
		t.Fatalf("expected error for 512-d embedding")
	}
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	if v := iou(a, a); v != 1 {
		t.Fatalf("iou(a,a) = %g", v)
	}
	if v := iou(a, image.Rect(20, 20, 30, 30)); v != 0 {
		t.Fatalf("disjoint iou = %g", v)
	}
	if v := iou(a, image.Rect(5, 0, 15, 10)); math.Abs(v-1.0/3.0) > 1e-9 {
		t.Fatalf("half overlap iou = %g", v)
	}
}

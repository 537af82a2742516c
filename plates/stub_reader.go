package plates

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

// StubConfidence is the fixed confidence of every stub reading.
const StubConfidence = 0.85

// StubReader stands in for an OCR engine. It hashes the crop pixels with
// FNV-1a and renders the hash as three letters, a hyphen and four digits,
// so the same crop always reads the same and different crops rarely collide.
type StubReader struct {
	minDim int
}

func NewStubReader(minDim int) *StubReader {
	if minDim <= 0 {
		minDim = DefaultMinDimension
	}
	return &StubReader{minDim: minDim}
}

func (r *StubReader) Name() string { return "stub" }

func (r *StubReader) Read(ctx context.Context, plate media.Image) (detection.PlateReading, error) {
	if err := ctx.Err(); err != nil {
		return detection.PlateReading{}, err
	}
	if err := checkReadable(plate, r.minDim); err != nil {
		return detection.PlateReading{}, err
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%dx%d:", plate.Width, plate.Height)
	h.Write(plate.Pix)
	sum := h.Sum64()

	var letters [3]byte
	for i := range letters {
		letters[i] = byte('A' + sum%26)
		sum /= 26
	}
	return detection.PlateReading{
		Text:       fmt.Sprintf("%s-%04d", letters[:], sum%10000),
		Confidence: StubConfidence,
	}, nil
}

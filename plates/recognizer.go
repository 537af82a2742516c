package plates

import (
	"context"
	"fmt"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

// Result is a located and read plate.
type Result struct {
	Location
	Reading detection.PlateReading
}

// Recognizer chains the locator and a reader.
type Recognizer struct {
	locator *Locator
	reader  Reader
}

// NewRecognizer builds a recognizer. reader may be nil when no plate reader
// could be configured, in which case Recognize reports the capability as
// unavailable.
func NewRecognizer(locator *Locator, reader Reader) *Recognizer {
	return &Recognizer{locator: locator, reader: reader}
}

func (r *Recognizer) Available() bool {
	return r != nil && r.locator != nil && r.reader != nil
}

func (r *Recognizer) ReaderName() string {
	if !r.Available() {
		return ""
	}
	return r.reader.Name()
}

func (r *Recognizer) Recognize(ctx context.Context, img media.Image) (Result, error) {
	if !r.Available() {
		return Result{}, fmt.Errorf("plate reader not configured: %w", detection.ErrCapabilityUnavailable)
	}
	loc, err := r.locator.Locate(img)
	if err != nil {
		return Result{}, err
	}
	reading, err := r.reader.Read(ctx, loc.Binary)
	if err != nil {
		return Result{Location: loc}, fmt.Errorf("%s read: %w", r.reader.Name(), err)
	}
	reading.Text = NormalizePlate(reading.Text)
	reading.Confidence = clamp01(reading.Confidence)
	return Result{Location: loc, Reading: reading}, nil
}

package detection

import "errors"

// Every pipeline returns either a value or one of these kinds, possibly
// wrapped with context. None of them are fatal to the process.
var (
	ErrDecode                = errors.New("image could not be decoded")
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrNoPlateDetected       = errors.New("no licence plate detected")
	ErrUnreadablePlate       = errors.New("licence plate region is unreadable")
	ErrUnsupportedInput      = errors.New("unsupported input")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrDecode, "decode_error"},
	{ErrNoFaceDetected, "no_face_detected"},
	{ErrNoPlateDetected, "no_plate_detected"},
	{ErrUnreadablePlate, "unreadable_plate"},
	{ErrUnsupportedInput, "unsupported_input"},
	{ErrCapabilityUnavailable, "capability_unavailable"},
}

// Code returns a stable machine-readable code for an error kind, or "" when
// err is not one of the detection kinds.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

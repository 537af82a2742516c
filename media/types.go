package media

type AssetType string

const (
	AssetTypeCapture AssetType = "capture"
	AssetTypeDebug   AssetType = "debug"
)

// CaptureKind names the pipeline that produced a stored capture.
type CaptureKind string

const (
	CaptureFace    CaptureKind = "faces"
	CapturePlate   CaptureKind = "plates"
	CaptureParking CaptureKind = "parking"
)

// Metadata is what we keep from a capture's EXIF block and header.
type Metadata struct {
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	CameraMake  *string `json:"camera_make,omitempty"`
	CameraModel *string `json:"camera_model,omitempty"`
	Orientation *int    `json:"orientation,omitempty"`
	TakenAt     *int64  `json:"taken_at,omitempty"`
}

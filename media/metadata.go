package media

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

func getInt(exifData *exif.Exif, tagName exif.FieldName) *int {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &val
}

// helper to safely get a string tag, trimming null terminators and quotes
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val := strings.Trim(strings.TrimRight(tag.String(), "\x00"), `"`)
	if val == "" {
		return nil
	}
	return &val
}

// ReadCaptureMetadata extracts dimensions and the useful EXIF fields from an upload.
// Missing EXIF is not an error.
func ReadCaptureMetadata(data []byte) (*Metadata, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to decode config: %w", err)
	}
	w, h := config.Width, config.Height
	meta := &Metadata{Width: &w, Height: &h}

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta, nil
	}

	meta.CameraMake = getString(exifData, exif.Make)
	meta.CameraModel = getString(exifData, exif.Model)
	meta.Orientation = getInt(exifData, exif.Orientation)
	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	}
	return meta, nil
}

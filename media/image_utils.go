package media

import (
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
)

var supportedUploadExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
}

// IsSupportedUpload checks the filename extension of an uploaded frame.
// An empty name is allowed; the decoder has the final say.
func IsSupportedUpload(filename string) bool {
	if filename == "" {
		return true
	}
	return supportedUploadExtensions[strings.ToLower(filepath.Ext(filename))]
}

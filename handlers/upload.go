package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/media"
)

const multipartMemory = 8 << 20

var errMissingFile = errors.New("no file provided")

// readUpload returns the bytes of the multipart file in field. Requests
// larger than maxBytes are rejected.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("upload exceeds %d bytes: %w", maxBytes, detection.ErrUnsupportedInput)
		}
		return nil, fmt.Errorf("invalid multipart form: %w", detection.ErrUnsupportedInput)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w in field %q", errMissingFile, field)
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, fmt.Errorf("%w: no file selected", errMissingFile)
	}
	if !media.IsSupportedUpload(header.Filename) {
		return nil, fmt.Errorf("file %q is not a JPEG or PNG: %w", header.Filename, detection.ErrUnsupportedInput)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", detection.ErrDecode)
	}
	return data, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingFile) {
		WriteAPIError(w, http.StatusBadRequest, "missing_file", err.Error())
		return
	}
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		status, code = http.StatusBadRequest, "invalid_upload"
	}
	WriteAPIError(w, status, code, err.Error())
}

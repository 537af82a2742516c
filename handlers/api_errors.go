package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/repository"
	"github.com/camden-git/siteguard/services"
	"github.com/camden-git/siteguard/workers"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{detection.ErrDecode, http.StatusBadRequest, ""},
	{detection.ErrUnsupportedInput, http.StatusBadRequest, ""},
	{detection.ErrNoFaceDetected, http.StatusUnprocessableEntity, ""},
	{detection.ErrNoPlateDetected, http.StatusUnprocessableEntity, ""},
	{detection.ErrUnreadablePlate, http.StatusUnprocessableEntity, ""},
	{services.ErrFaceNotRecognized, http.StatusUnprocessableEntity, "face_not_recognized"},
	{detection.ErrCapabilityUnavailable, http.StatusServiceUnavailable, ""},
	{workers.ErrQueueFull, http.StatusServiceUnavailable, "queue_full"},
	{workers.ErrPoolStopped, http.StatusServiceUnavailable, "shutting_down"},
	{repository.ErrAlreadyCheckedOut, http.StatusConflict, "already_checked_out"},
	{repository.ErrUserExists, http.StatusConflict, "user_exists"},
	{services.ErrSpaceExists, http.StatusConflict, "space_exists"},
	{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	{context.Canceled, http.StatusRequestTimeout, "cancelled"},
}

// statusForError maps a service error to an HTTP status and error code.
func statusForError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			code := e.code
			if code == "" {
				code = detection.Code(err)
			}
			return e.status, code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError writes err in the error envelope. Unexpected errors are
// logged and their detail is not exposed.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	status, code := statusForError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		detail = "Internal server error"
	}
	WriteAPIError(w, status, code, detail)
}

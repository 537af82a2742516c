package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/services"
)

type AttendanceHandler struct {
	Service        *services.AttendanceService
	MaxUploadBytes int64
	Log            *logger.Logger
}

// Enroll replaces the caller's face embedding with one extracted from the
// face_image upload.
func (h *AttendanceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	data, err := readUpload(w, r, "face_image", h.MaxUploadBytes)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	fe, err := h.Service.Enroll(r.Context(), user, data)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":         "Face registered successfully",
		"embedding_model": fe.EmbeddingModel,
		"created_at":      fe.CreatedAt,
	})
}

type attendanceResponse struct {
	Type     string                   `json:"type"`
	Message  string                   `json:"message"`
	UserID   uint                     `json:"user_id"`
	Time     string                   `json:"time"`
	Distance float64                  `json:"distance"`
	Record   *models.AttendanceRecord `json:"record"`
}

// Record checks the recognised person in or out.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	data, err := readUpload(w, r, "face_image", h.MaxUploadBytes)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	res, err := h.Service.Record(r.Context(), user.OrganizationID, data)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	msg := "Check-in recorded successfully"
	if res.Type == services.AttendanceCheckOut {
		msg = "Check-out recorded successfully"
	}
	writeJSON(w, http.StatusOK, attendanceResponse{
		Type:     res.Type,
		Message:  msg,
		UserID:   res.UserID,
		Time:     res.Time.Format(time.TimeOnly),
		Distance: res.Match.Distance,
		Record:   res.Record,
	})
}

type attendanceEntry struct {
	models.AttendanceRecord
	Duration string `json:"duration,omitempty"`
}

// History lists the caller's latest records.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := h.Service.History(user.ID, limit)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	out := make([]attendanceEntry, len(recs))
	for i := range recs {
		out[i] = attendanceEntry{AttendanceRecord: recs[i], Duration: recs[i].Duration()}
	}
	writeJSON(w, http.StatusOK, out)
}

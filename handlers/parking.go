package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/services"
)

type ParkingHandler struct {
	Service        *services.ParkingService
	MaxUploadBytes int64
	Log            *logger.Logger
}

type createSpacePayload struct {
	SpaceIdentifier string `json:"space_identifier"`
	Description     string `json:"description"`
}

func (h *ParkingHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	var payload createSpacePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	space, err := h.Service.CreateSpace(user.OrganizationID, payload.SpaceIdentifier, payload.Description)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, space)
}

func (h *ParkingHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	spaces, err := h.Service.ListSpaces(user.OrganizationID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

// Analyze runs occupancy analysis on parking_image.
func (h *ParkingHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	data, err := readUpload(w, r, "parking_image", h.MaxUploadBytes)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	analysis, err := h.Service.Analyze(r.Context(), user.OrganizationID, data)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *ParkingHandler) Logs(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.Service.ListLogs(user.OrganizationID, limit)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/services"
)

type PlateHandler struct {
	Service        *services.AccessService
	MaxUploadBytes int64
	Log            *logger.Logger
}

func (h *PlateHandler) Register(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	var payload services.PlateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	plate, err := h.Service.RegisterPlate(user.OrganizationID, payload)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, plate)
}

func (h *PlateHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	plates, err := h.Service.ListPlates(user.OrganizationID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, plates)
}

// Detect reads the plate in plate_image and reports whether the vehicle is
// authorised.
func (h *PlateHandler) Detect(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	data, err := readUpload(w, r, "plate_image", h.MaxUploadBytes)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	decision, err := h.Service.Detect(r.Context(), user.OrganizationID, data, r.FormValue("location"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *PlateHandler) Logs(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.Service.ListLogs(user.OrganizationID, limit)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

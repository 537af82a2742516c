package handlers

import (
	"net/http"
)

// Capabilities reports which pipelines were loaded at startup.
type Capabilities struct {
	Face         bool   `json:"face"`
	FaceBackend  string `json:"face_backend,omitempty"`
	PlateReader  bool   `json:"plate_reader"`
	ReaderName   string `json:"plate_reader_name,omitempty"`
	PlateLocator bool   `json:"plate_locator"`
	Parking      bool   `json:"parking"`
}

type HealthHandler struct {
	Capabilities Capabilities
	QueueStats   func() map[string]int
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":       "ok",
		"capabilities": h.Capabilities,
	}
	if h.QueueStats != nil {
		resp["pending_jobs"] = h.QueueStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/tryon/internal/app"
)

// CalibrationHandler reads and updates the placement constants.
type CalibrationHandler struct {
	app *app.App
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(a *app.App) *CalibrationHandler {
	return &CalibrationHandler{app: a}
}

type calibrationRequest struct {
	VerticalOffset *float64 `json:"vertical_offset"`
	ScaleFactor    *float64 `json:"scale_factor"`
	Realign        bool     `json:"realign"`
}

// ServeHTTP handles GET and PUT /api/calibration. A PUT may update either
// constant; omitted fields keep their value.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Calibration())
	case http.MethodPut:
		h.update(w, r)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (h *CalibrationHandler) update(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cfg := h.app.Calibration()
	if req.VerticalOffset != nil {
		cfg.VerticalOffset = *req.VerticalOffset
	}
	if req.ScaleFactor != nil {
		cfg.ScaleFactor = *req.ScaleFactor
	}

	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.SetCalibration(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save calibration")
		return
	}

	if req.Realign {
		// no photo or model yet is fine
		_ = h.app.Realign()
	}

	writeJSON(w, http.StatusOK, h.app.Calibration())
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/compose"
	"github.com/ayusman/tryon/internal/store"
)

// ExportHandler downloads the composited preview.
type ExportHandler struct {
	app *app.App
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(a *app.App) *ExportHandler {
	return &ExportHandler{app: a}
}

// ServeHTTP handles GET /api/export.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	data, name, err := h.app.Export(r.Context())
	if err != nil {
		if errors.Is(err, app.ErrNoImage) {
			writeError(w, http.StatusConflict, "No image to export")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to export preview")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportsHandler lists recorded exports.
type ExportsHandler struct {
	app *app.App
}

// NewExportsHandler creates a new ExportsHandler.
func NewExportsHandler(a *app.App) *ExportsHandler {
	return &ExportsHandler{app: a}
}

type listExportsResponse struct {
	Exports []*store.Export `json:"exports"`
}

// ServeHTTP handles GET /api/exports?limit=N.
func (h *ExportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	exports, err := h.app.Exports(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exports")
		return
	}
	if exports == nil {
		exports = []*store.Export{}
	}

	writeJSON(w, http.StatusOK, listExportsResponse{Exports: exports})
}

// PreviewHandler renders the current scene, selection chrome included.
type PreviewHandler struct {
	app     *app.App
	quality int
}

// NewPreviewHandler creates a new PreviewHandler encoding JPEG at quality.
func NewPreviewHandler(a *app.App, quality int) *PreviewHandler {
	return &PreviewHandler{app: a, quality: quality}
}

// ServeHTTP handles GET /api/preview.
func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	img, err := h.app.Preview(r.Context())
	if err != nil {
		if errors.Is(err, app.ErrNoImage) {
			writeError(w, http.StatusConflict, "No image submitted")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}

	data, err := compose.EncodeJPEG(img, h.quality)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode preview")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

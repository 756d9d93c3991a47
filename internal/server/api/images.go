package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/capture"
)

// MaxUploadSize bounds uploaded photos.
const MaxUploadSize = 20 << 20

// ImageHandler accepts face photos.
type ImageHandler struct {
	app *app.App
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(a *app.App) *ImageHandler {
	return &ImageHandler{app: a}
}

type submitResponse struct {
	ImageID string     `json:"image_id"`
	Status  app.Status `json:"status"`
}

// ServeHTTP handles POST /api/images. The photo is either the multipart
// field "image" or the raw request body. Alignment runs in the background;
// clients follow it through /api/status or /api/events.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Empty image")
		return
	}

	img := capture.Decode(data, capture.SourceUpload)
	h.app.SubmitImage(img)

	writeJSON(w, http.StatusAccepted, submitResponse{ImageID: img.ID, Status: h.app.Status().Status})
}

func readUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(MaxUploadSize); err == nil {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New("multipart field \"image\" is required")
		}
		defer file.Close()
		return io.ReadAll(file)
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return io.ReadAll(r.Body)
}

// SnapshotHandler takes a photo with the camera.
type SnapshotHandler struct {
	app *app.App
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(a *app.App) *SnapshotHandler {
	return &SnapshotHandler{app: a}
}

// ServeHTTP handles POST /api/snapshot.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	id, err := h.app.Snapshot(r.Context())
	if err != nil {
		if errors.Is(err, app.ErrNoCamera) {
			writeError(w, http.StatusServiceUnavailable, "No camera configured")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{ImageID: id, Status: h.app.Status().Status})
}

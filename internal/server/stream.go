package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/compose"
)

// StreamHandler serves the rendered preview as MJPEG. A frame is sent when
// the scene changes, at most fps times per second.
type StreamHandler struct {
	app     *app.App
	fps     int
	quality int
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(a *app.App, fps, quality int) *StreamHandler {
	if fps <= 0 {
		fps = 10
	}
	return &StreamHandler{app: a, fps: fps, quality: quality}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, cancel := h.app.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(time.Second / time.Duration(h.fps))
	defer ticker.Stop()

	dirty := true
	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			dirty = true
			continue
		case <-ticker.C:
		}

		if !dirty {
			continue
		}

		img, err := h.app.Preview(r.Context())
		if err != nil {
			continue
		}
		data, err := compose.EncodeJPEG(img, h.quality)
		if err != nil {
			continue
		}
		dirty = false

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		w.Write(data)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

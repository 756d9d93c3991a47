package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/interaction"
	"github.com/ayusman/tryon/internal/overlay"
)

// StatusHandler reports the alignment status.
type StatusHandler struct {
	app *app.App
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(a *app.App) *StatusHandler {
	return &StatusHandler{app: a}
}

// ServeHTTP handles GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Status())
}

// OverlayHandler reads and writes the overlay transform.
type OverlayHandler struct {
	app *app.App
}

// NewOverlayHandler creates a new OverlayHandler.
func NewOverlayHandler(a *app.App) *OverlayHandler {
	return &OverlayHandler{app: a}
}

type overlayResponse struct {
	Transform overlay.Transform `json:"transform"`
	Selection string            `json:"selection"`
	State     string            `json:"state"`
}

func (h *OverlayHandler) response() overlayResponse {
	state := h.app.Controller().State()
	return overlayResponse{
		Transform: h.app.Transform(),
		Selection: state.Selection(),
		State:     state.String(),
	}
}

// ServeHTTP handles GET and PUT /api/overlay.
func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.response())
	case http.MethodPut:
		var t overlay.Transform
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		applied, err := h.app.SetTransform(t)
		if err != nil {
			if errors.Is(err, overlay.ErrNonPositiveSize) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to update overlay")
			return
		}
		if !applied {
			writeError(w, http.StatusConflict, "Gesture in progress")
			return
		}
		writeJSON(w, http.StatusOK, h.response())
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

// PointerEvent is one pointer interaction sent by the client.
type PointerEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

// Pointer event types.
const (
	PointerDown         = "down"
	PointerDownOutside  = "down_outside"
	PointerGestureStart = "gesture_start"
	PointerMove         = "move"
	PointerUp           = "up"
)

// ErrUnknownPointerEvent is returned for an unrecognised event type.
var ErrUnknownPointerEvent = errors.New("unknown pointer event")

// ApplyPointer delivers e to the controller and returns the resulting state.
func ApplyPointer(c *interaction.Controller, e PointerEvent) (interaction.State, error) {
	p := interaction.Point{X: e.X, Y: e.Y}

	switch e.Type {
	case PointerDown:
		return c.PointerDown(p), nil
	case PointerDownOutside:
		return c.PointerDownOutside(), nil
	case PointerGestureStart:
		c.BeginGesture(p)
		return c.State(), nil
	case PointerMove:
		if err := c.Move(e.DX, e.DY); err != nil {
			return c.State(), err
		}
		return c.State(), nil
	case PointerUp:
		return c.PointerUp(), nil
	}
	return c.State(), fmt.Errorf("%w: %q", ErrUnknownPointerEvent, e.Type)
}

// PointerHandler receives pointer events.
type PointerHandler struct {
	app     *app.App
	overlay *OverlayHandler
}

// NewPointerHandler creates a new PointerHandler.
func NewPointerHandler(a *app.App) *PointerHandler {
	return &PointerHandler{app: a, overlay: NewOverlayHandler(a)}
}

// ServeHTTP handles POST /api/pointer and replies with the overlay state.
func (h *PointerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var e PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if _, err := ApplyPointer(h.app.Controller(), e); err != nil {
		if errors.Is(err, ErrUnknownPointerEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.overlay.response())
}

package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/server/api"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler streams application events to websocket clients and accepts
// pointer events from them.
type EventsHandler struct {
	app     *app.App
	logger  *log.Logger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewEventsHandler creates a new EventsHandler for a.
func NewEventsHandler(a *app.App, logger *log.Logger) *EventsHandler {
	return &EventsHandler{
		app:     a,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles websocket upgrade requests on /api/events. The first
// message is a snapshot of the status and overlay.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	events, cancel := h.app.Subscribe()
	defer cancel()

	var writeMu sync.Mutex
	send := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	status := h.app.Status()
	transform := h.app.Transform()
	if err := send(app.Event{Type: app.EventStatus, Status: &status}); err != nil {
		return
	}
	if err := send(app.Event{Type: app.EventTransform, Transform: &transform}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPointers(conn, send)
	}()

	for {
		select {
		case <-done:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := send(e); err != nil {
				return
			}
		}
	}
}

// readPointers applies pointer events sent by the client until the
// connection closes.
func (h *EventsHandler) readPointers(conn *websocket.Conn, send func(interface{}) error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var e api.PointerEvent
		if err := json.Unmarshal(data, &e); err != nil {
			send(map[string]string{"error": "invalid pointer event"})
			continue
		}
		if _, err := api.ApplyPointer(h.app.Controller(), e); err != nil {
			send(map[string]string{"error": err.Error()})
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *EventsHandler) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

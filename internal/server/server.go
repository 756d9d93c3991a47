// Package server provides the HTTP server for the hairstyle preview service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	App         *app.App
	StaticDir   string
	PreviewFPS  int
	JPEGQuality int
	Logger      *log.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	logger *log.Logger
	mux    *http.ServeMux
	start  time.Time
	events *EventsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.PreviewFPS <= 0 {
		config.PreviewFPS = 10
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = 85
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		assets := api.NewAssetHandler(a)
		s.mux.Handle("/api/assets", assets)
		s.mux.Handle("/api/assets/", assets)

		s.mux.Handle("/api/images", api.NewImageHandler(a))
		s.mux.Handle("/api/snapshot", api.NewSnapshotHandler(a))
		s.mux.Handle("/api/status", api.NewStatusHandler(a))
		s.mux.Handle("/api/overlay", api.NewOverlayHandler(a))
		s.mux.Handle("/api/pointer", api.NewPointerHandler(a))
		s.mux.Handle("/api/calibration", api.NewCalibrationHandler(a))
		s.mux.Handle("/api/export", api.NewExportHandler(a))
		s.mux.Handle("/api/exports", api.NewExportsHandler(a))
		s.mux.Handle("/api/preview", api.NewPreviewHandler(a, s.config.JPEGQuality))
		s.mux.Handle("/api/stream", NewStreamHandler(a, s.config.PreviewFPS, s.config.JPEGQuality))

		s.events = NewEventsHandler(a, s.logger)
		s.mux.Handle("/api/events", s.events)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["detector"] = s.config.App.Status().Detector
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.events != nil {
		s.events.CloseAll()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package app orchestrates detection, placement and interaction for the
// hairstyle preview.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ayusman/tryon/internal/asset"
	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/interaction"
	"github.com/ayusman/tryon/internal/overlay"
	"github.com/ayusman/tryon/internal/placement"
	"github.com/ayusman/tryon/internal/store"
)

// Canvas size used before any image has been submitted.
const (
	DefaultCanvasWidth  = 640
	DefaultCanvasHeight = 480
)

// Status is the alignment status shown to the user.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusDetecting     Status = "detecting"
	StatusAligned       Status = "aligned"
	StatusNoFace        Status = "no_face_found"
	StatusDetectorError Status = "detector_error"
)

// StatusInfo is the status together with the image it refers to.
type StatusInfo struct {
	Status   Status `json:"status"`
	ImageID  string `json:"image_id,omitempty"`
	Detector string `json:"detector"`
	Message  string `json:"message,omitempty"`
}

var (
	// ErrNoImage is returned when an operation needs a submitted image.
	ErrNoImage = errors.New("no image submitted")

	// ErrNoCamera is returned by Snapshot when no camera is configured.
	ErrNoCamera = errors.New("no camera configured")

	// errStaleResult marks a detection result for an image that has been
	// replaced. It never leaves the package.
	errStaleResult = errors.New("stale detection result")
)

// Loader is implemented by detectors that load their model asynchronously.
type Loader interface {
	Load(ctx context.Context) error
}

// Config holds the collaborators and settings of the application.
type Config struct {
	Catalog     *asset.Catalog
	Detector    detector.Detector
	Store       *store.Store
	Snapshotter *capture.Snapshotter
	Placement   placement.Config
	Interaction interaction.Config
	Logger      *log.Logger
}

// App is the detection orchestrator. It owns the current image, the overlay
// transform and the alignment status.
type App struct {
	config     Config
	logger     *log.Logger
	catalog    *asset.Catalog
	detector   detector.Detector
	overlay    *overlay.State
	controller *interaction.Controller
	events     *hub

	mu        sync.RWMutex
	ctx       context.Context
	placement placement.Config
	assetID   string
	image     *capture.Image
	prepared  *capture.Image
	cancel    context.CancelFunc
	status    StatusInfo

	wg     sync.WaitGroup
	aligns sync.WaitGroup
}

// New creates an App. The overlay starts at the default asset's natural size
// centered on the default canvas.
func New(config Config) (*App, error) {
	if config.Catalog == nil {
		return nil, errors.New("app: catalog is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	cfg := config.Placement
	if cfg == (placement.Config{}) {
		cfg = placement.DefaultConfig()
	}
	if config.Store != nil {
		stored, err := config.Store.Settings().Calibration()
		switch {
		case err == nil:
			cfg = stored
			logger.Debug("using stored calibration", "vertical_offset", cfg.VerticalOffset, "scale_factor", cfg.ScaleFactor)
		case !errors.Is(err, store.ErrNotFound):
			logger.Warn("cannot read stored calibration", "err", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: placement: %w", err)
	}

	def := config.Catalog.Default()
	st, err := overlay.NewState(defaultTransform(def, DefaultCanvasWidth, DefaultCanvasHeight))
	if err != nil {
		return nil, fmt.Errorf("app: initial overlay: %w", err)
	}

	a := &App{
		config:     config,
		logger:     logger,
		catalog:    config.Catalog,
		detector:   config.Detector,
		overlay:    st,
		controller: interaction.NewController(config.Interaction, st),
		events:     newHub(),
		ctx:        context.Background(),
		placement:  cfg,
		assetID:    def.ID,
		status:     StatusInfo{Status: StatusIdle},
	}

	a.controller.OnChange(func(s interaction.State) {
		a.events.publish(Event{Type: EventSelection, Selection: s.Selection()})
	})

	return a, nil
}

func defaultTransform(a asset.Asset, canvasW, canvasH int) overlay.Transform {
	return overlay.DefaultTransform(float64(canvasW), float64(canvasH), float64(a.Width), float64(a.Height))
}

// Start begins loading the detector model in the background and forwards
// overlay changes to event subscribers until ctx is done.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	if l, ok := a.detector.(Loader); ok {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()

			start := time.Now()
			if err := l.Load(ctx); err != nil {
				a.logger.Error("face landmark model failed to load", "err", err)
			} else {
				a.logger.Info("face landmark model ready", "took", time.Since(start).Round(time.Millisecond))
			}
			if ctx.Err() != nil {
				return
			}
			// A pending image is aligned now, or marked as a detector error.
			if err := a.Realign(); err != nil && !errors.Is(err, ErrNoImage) {
				a.logger.Warn("cannot align pending image", "err", err)
			}
			a.publishStatus()
		}()
	}

	updates, cancel := a.overlay.Subscribe()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-updates:
				if !ok {
					return
				}
				a.events.publish(Event{Type: EventTransform, Transform: &t})
			}
		}
	}()
}

// Close stops background work and releases the current image and detector.
// The context passed to Start must be cancelled first.
func (a *App) Close() error {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	img := a.image
	a.image = nil
	a.mu.Unlock()

	a.aligns.Wait()
	a.wg.Wait()

	if img != nil {
		img.Close()
	}
	return a.detector.Close()
}

// Subscribe returns a channel of application events and a function that
// ends the subscription.
func (a *App) Subscribe() (<-chan Event, func()) {
	return a.events.subscribe()
}

// Controller returns the interaction controller that pointer events go to.
func (a *App) Controller() *interaction.Controller {
	return a.controller
}

// Transform returns the current overlay transform.
func (a *App) Transform() overlay.Transform {
	return a.overlay.Get()
}

// SetTransform writes a transform supplied by the client. Like automatic
// alignment it is refused while a gesture is in progress.
func (a *App) SetTransform(t overlay.Transform) (bool, error) {
	return a.controller.TryApply(t)
}

// Status returns the current status.
func (a *App) Status() StatusInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	info := a.status
	info.Detector = a.detector.State().String()
	return info
}

// Image returns the current image, or nil.
func (a *App) Image() *capture.Image {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.image
}

// Catalog returns the asset catalog.
func (a *App) Catalog() *asset.Catalog {
	return a.catalog
}

// ActiveAsset returns the selected asset.
func (a *App) ActiveAsset() asset.Asset {
	a.mu.RLock()
	id := a.assetID
	a.mu.RUnlock()

	active, _ := a.catalog.Get(id)
	return active
}

// SelectAsset makes id the active asset. Selection is cleared and the
// overlay returns to the asset's default placement on the current canvas.
func (a *App) SelectAsset(id string) error {
	selected, err := a.catalog.Get(id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.assetID = id
	w, h := a.canvasLocked()
	err = a.controller.Reset(defaultTransform(selected, w, h))
	a.mu.Unlock()
	if err != nil {
		return err
	}

	a.logger.Info("asset selected", "asset", id)
	a.events.publish(Event{Type: EventAsset, AssetID: id})
	return nil
}

// canvasLocked returns the size of the current image, or the default canvas.
func (a *App) canvasLocked() (int, int) {
	if a.image != nil {
		if w, h := a.image.Size(); w > 0 && h > 0 {
			return w, h
		}
	}
	return DefaultCanvasWidth, DefaultCanvasHeight
}

// Calibration returns the placement constants in use.
func (a *App) Calibration() placement.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.placement
}

// SetCalibration replaces the placement constants and persists them when a
// store is configured. It applies to the next alignment.
func (a *App) SetCalibration(cfg placement.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetCalibration(cfg); err != nil {
			return fmt.Errorf("save calibration: %w", err)
		}
	}

	a.mu.Lock()
	a.placement = cfg
	a.mu.Unlock()

	a.logger.Info("calibration updated", "vertical_offset", cfg.VerticalOffset, "scale_factor", cfg.ScaleFactor)
	return nil
}

// Wait blocks until alignments started by SubmitImage have finished.
func (a *App) Wait() {
	a.aligns.Wait()
}

func (a *App) setStatusLocked(s Status, imageID, message string) {
	a.status = StatusInfo{Status: s, ImageID: imageID, Message: message}
}

func (a *App) publishStatus() {
	info := a.Status()
	a.events.publish(Event{Type: EventStatus, Status: &info})
}

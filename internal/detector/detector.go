package detector

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// ErrNotReady is returned when detection is requested before the model has loaded.
var ErrNotReady = errors.New("detector not ready")

// ErrLoadFailed is reported for a detector whose model could not be loaded.
var ErrLoadFailed = errors.New("face landmark model failed to load")

// State describes whether the detection model can be used.
type State int

const (
	// StateLoading means the model is still being loaded.
	StateLoading State = iota
	// StateReady means Detect can be called.
	StateReady
	// StateFailed means the model could not be loaded.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes a still image and returns detected face landmarks in
	// image pixel coordinates. Returns an empty slice if no face is found.
	Detect(ctx context.Context, frame *gocv.Mat) ([]FaceLandmarks, error)

	// State reports whether the detector has finished loading its model.
	State() State

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// Script is the path to the FaceMesh service script. Empty means search
	// the usual locations.
	Script string

	// Python is the interpreter used to run Script. Empty means search for a
	// virtual environment, then fall back to python3.
	Python string

	// MaxFaces is the maximum number of faces the model reports (default: 1).
	MaxFaces int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// IdleTimeout shuts the service down after this long without requests.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:      1,
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}

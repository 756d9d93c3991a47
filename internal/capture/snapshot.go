package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"
)

// SnapshotConfig controls how long the snapshotter waits for a steady frame.
type SnapshotConfig struct {
	MaxFrames int           `toml:"max_frames"`
	MaxChange float64       `toml:"max_change"`
	Steady    int           `toml:"steady_frames"`
	Interval  time.Duration `toml:"-"`
	Logger    *log.Logger   `toml:"-"`
}

// DefaultSnapshotConfig returns sensible defaults for a webcam.
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		MaxFrames: 30,
		MaxChange: 1.0,
		Steady:    3,
	}
}

// Snapshotter takes stills from a camera.
type Snapshotter struct {
	camera Camera
	config SnapshotConfig
	logger *log.Logger
}

// NewSnapshotter creates a snapshotter for camera.
func NewSnapshotter(camera Camera, config SnapshotConfig) *Snapshotter {
	if config.MaxFrames < 1 {
		config.MaxFrames = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Snapshotter{camera: camera, config: config, logger: logger}
}

// Snapshot opens the camera if needed and reads frames until the scene is
// steady or MaxFrames have been read. The last frame read becomes the still.
func (s *Snapshotter) Snapshot(ctx context.Context) (*Image, error) {
	if !s.camera.IsOpen() {
		if err := s.camera.Open(); err != nil {
			return nil, fmt.Errorf("open camera: %w", err)
		}
	}

	steady := NewSteadyDetector(s.config.MaxChange, s.config.Steady)
	defer steady.Close()

	var last *gocv.Mat
	for n := 0; n < s.config.MaxFrames; n++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				last.Close()
			}
			return nil, err
		}

		frame, err := s.camera.ReadFrame()
		if err != nil {
			if last != nil {
				break
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if last != nil {
			last.Close()
		}
		last = frame

		ok, change := steady.Observe(frame)
		if ok {
			s.logger.Debug("steady frame", "frame", n, "change", change)
			break
		}

		if s.config.Interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.config.Interval):
			}
		}
	}

	if last == nil {
		return nil, errors.New("camera produced no frames")
	}
	return FromMat(*last, SourceCamera), nil
}

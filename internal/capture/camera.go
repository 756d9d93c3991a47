// Package capture provides still images from uploads and from a camera using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings. Stills favour resolution over frame rate.
const (
	DefaultFPS    = 15
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultWarmup = 5
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrFrameRead is returned when the device delivers no usable frame.
	ErrFrameRead = errors.New("cannot read camera frame")
)

// Camera is a source of frames for snapshots.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// CameraConfig selects the device and the requested frame format.
type CameraConfig struct {
	Device int `toml:"device"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`
	// Warmup frames are read and dropped after Open while exposure settles.
	Warmup int `toml:"warmup"`
	// Mirror flips frames horizontally, matching a selfie preview.
	Mirror bool `toml:"mirror"`
}

// DefaultCameraConfig returns the settings for the first webcam.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		FPS:    DefaultFPS,
		Warmup: DefaultWarmup,
		Mirror: true,
	}
}

// DeviceCamera captures from a local video device.
type DeviceCamera struct {
	config  CameraConfig
	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewCamera creates a camera for config. Zero sizes and rates fall back to
// the defaults. The device is not touched until Open.
func NewCamera(config CameraConfig) *DeviceCamera {
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = DefaultWidth, DefaultHeight
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Warmup < 0 {
		config.Warmup = 0
	}
	return &DeviceCamera{config: config}
}

// Config returns the effective settings.
func (c *DeviceCamera) Config() CameraConfig {
	return c.config
}

// Open opens the device and drops the warmup frames.
func (c *DeviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.config.Device)
	if err != nil {
		return fmt.Errorf("open device %d: %w", c.config.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open device %d: %w", c.config.Device, ErrCameraNotOpen)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))

	discard := gocv.NewMat()
	for i := 0; i < c.config.Warmup; i++ {
		vc.Read(&discard)
	}
	discard.Close()

	c.capture = vc
	return nil
}

// Close releases the device.
func (c *DeviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame reads one frame, mirrored when configured.
func (c *DeviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrFrameRead
	}

	if !c.config.Mirror {
		return &mat, nil
	}
	flipped := gocv.NewMat()
	gocv.Flip(mat, &flipped, 1)
	mat.Close()
	return &flipped, nil
}

// IsOpen reports whether the device is open.
func (c *DeviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

// Package placement derives the overlay transform from facial landmarks.
package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/tryon/internal/landmark"
	"github.com/ayusman/tryon/internal/overlay"
)

// Reference calibration for the FaceMesh detector.
const (
	// DefaultVerticalOffset lifts the overlay center above the nose bridge
	// so it sits over the brow line.
	DefaultVerticalOffset = 60.0
	// DefaultScaleFactor is the overlay width in eye distances.
	DefaultScaleFactor = 2.2
)

var (
	// ErrInvalidGeometry is returned for degenerate landmark positions,
	// such as a non-positive distance between the outer eye corners.
	ErrInvalidGeometry = errors.New("invalid landmark geometry")

	// ErrInvalidAspectRatio is returned when the asset ratio is not a positive number.
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")
)

// Config holds the calibration constants of the solver. They depend on the
// detector's coordinate convention and need recalibration for other models.
type Config struct {
	VerticalOffset float64 `toml:"vertical_offset" json:"vertical_offset"`
	ScaleFactor    float64 `toml:"scale_factor" json:"scale_factor"`
}

// DefaultConfig returns the reference calibration.
func DefaultConfig() Config {
	return Config{
		VerticalOffset: DefaultVerticalOffset,
		ScaleFactor:    DefaultScaleFactor,
	}
}

// Validate checks that the scale factor can produce a positive size.
func (c Config) Validate() error {
	if !(c.ScaleFactor > 0) || math.IsInf(c.ScaleFactor, 0) {
		return fmt.Errorf("scale factor must be positive, got %g", c.ScaleFactor)
	}
	if math.IsNaN(c.VerticalOffset) || math.IsInf(c.VerticalOffset, 0) {
		return fmt.Errorf("vertical offset must be finite, got %g", c.VerticalOffset)
	}
	return nil
}

// Solve places an overlay whose natural height/width ratio is aspectRatio.
//
// The overlay is centered horizontally between the outer eye corners and
// vertically at VerticalOffset above the nose bridge. Its width is the eye
// distance times ScaleFactor. Solve is pure: equal inputs give equal output.
func Solve(set landmark.Set, aspectRatio float64, cfg Config) (overlay.Transform, error) {
	if !(aspectRatio > 0) || math.IsInf(aspectRatio, 0) {
		return overlay.Transform{}, fmt.Errorf("%w: %g", ErrInvalidAspectRatio, aspectRatio)
	}

	eyeDistance := set.RightEyeOuter.X - set.LeftEyeOuter.X
	if !(eyeDistance > 0) {
		return overlay.Transform{}, fmt.Errorf("%w: eye distance %g", ErrInvalidGeometry, eyeDistance)
	}

	centerX := (set.LeftEyeOuter.X + set.RightEyeOuter.X) / 2
	centerY := set.NoseBridgeTop.Y - cfg.VerticalOffset

	width := eyeDistance * cfg.ScaleFactor
	height := width * aspectRatio

	t := overlay.Transform{
		Top:    centerY - height/2,
		Left:   centerX - width/2,
		Width:  width,
		Height: height,
	}
	if err := t.Validate(); err != nil {
		return overlay.Transform{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	return t, nil
}

// Package overlay holds the position and size of the hairstyle overlay.
package overlay

import (
	"errors"
	"fmt"
)

// ErrNonPositiveSize is returned for transforms whose width or height is not positive.
var ErrNonPositiveSize = errors.New("overlay size must be positive")

// Transform places the overlay in source-image pixel coordinates.
// It is always axis aligned.
type Transform struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate checks the positivity invariant. Off-canvas positions are allowed.
func (t Transform) Validate() error {
	if !(t.Width > 0) || !(t.Height > 0) {
		return fmt.Errorf("%w: %gx%g", ErrNonPositiveSize, t.Width, t.Height)
	}
	return nil
}

// Right returns the x coordinate of the right edge.
func (t Transform) Right() float64 { return t.Left + t.Width }

// Bottom returns the y coordinate of the bottom edge.
func (t Transform) Bottom() float64 { return t.Top + t.Height }

// Ratio returns width / height.
func (t Transform) Ratio() float64 { return t.Width / t.Height }

// Contains reports whether (x, y) lies inside the overlay rectangle.
func (t Transform) Contains(x, y float64) bool {
	return x >= t.Left && x <= t.Right() && y >= t.Top && y <= t.Bottom()
}

// Translate returns the transform moved by (dx, dy).
func (t Transform) Translate(dx, dy float64) Transform {
	t.Left += dx
	t.Top += dy
	return t
}

// DefaultTransform returns the overlay at its natural size, centered on the canvas.
func DefaultTransform(canvasWidth, canvasHeight, naturalWidth, naturalHeight float64) Transform {
	return Transform{
		Top:    (canvasHeight - naturalHeight) / 2,
		Left:   (canvasWidth - naturalWidth) / 2,
		Width:  naturalWidth,
		Height: naturalHeight,
	}
}

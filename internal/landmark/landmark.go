// Package landmark turns raw detector output into the named anchor points
// used for overlay placement.
package landmark

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/tryon/internal/detector"
)

var (
	// ErrNoFace is returned when the detector reported no face.
	ErrNoFace = errors.New("no face found")

	// ErrMalformed is returned when a detector payload is missing anchor
	// points or carries non-finite coordinates.
	ErrMalformed = errors.New("malformed landmark payload")
)

// Point is a position in source-image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Set holds the anchors the placement solver needs. A Set returned without
// error is always fully populated.
type Set struct {
	LeftEyeOuter  Point `json:"left_eye_outer"`
	RightEyeOuter Point `json:"right_eye_outer"`
	NoseBridgeTop Point `json:"nose_bridge_top"`
}

// Indices maps each anchor to a position in the detector's point array.
type Indices struct {
	LeftEyeOuter  int
	RightEyeOuter int
	NoseBridgeTop int
}

// FaceMeshIndices returns the anchor indices for the MediaPipe FaceMesh model.
func FaceMeshIndices() Indices {
	return Indices{
		LeftEyeOuter:  detector.LeftEyeOuter,
		RightEyeOuter: detector.RightEyeOuter,
		NoseBridgeTop: detector.NoseBridgeTop,
	}
}

// Adapter normalizes detector results using a fixed index mapping.
type Adapter struct {
	indices Indices
}

// NewAdapter creates an Adapter for a detector with the given indexing.
func NewAdapter(indices Indices) *Adapter {
	return &Adapter{indices: indices}
}

// Normalize converts FaceMesh results with the default adapter.
func Normalize(faces []detector.FaceLandmarks) (Set, error) {
	return NewAdapter(FaceMeshIndices()).Normalize(faces)
}

// Normalize selects one face and extracts its anchors.
//
// When several faces are reported the one with the highest score is used;
// ties keep the earliest face in the list.
func (a *Adapter) Normalize(faces []detector.FaceLandmarks) (Set, error) {
	if len(faces) == 0 {
		return Set{}, ErrNoFace
	}

	best := 0
	for i := 1; i < len(faces); i++ {
		if faces[i].Score > faces[best].Score {
			best = i
		}
	}
	face := faces[best]

	left, err := a.point(face, a.indices.LeftEyeOuter)
	if err != nil {
		return Set{}, err
	}
	right, err := a.point(face, a.indices.RightEyeOuter)
	if err != nil {
		return Set{}, err
	}
	nose, err := a.point(face, a.indices.NoseBridgeTop)
	if err != nil {
		return Set{}, err
	}

	return Set{
		LeftEyeOuter:  left,
		RightEyeOuter: right,
		NoseBridgeTop: nose,
	}, nil
}

func (a *Adapter) point(face detector.FaceLandmarks, index int) (Point, error) {
	if index < 0 || index >= len(face.Points) {
		return Point{}, fmt.Errorf("%w: index %d out of range (%d points)", ErrMalformed, index, len(face.Points))
	}

	p := face.Points[index]
	if !finite(p.X) || !finite(p.Y) {
		return Point{}, fmt.Errorf("%w: index %d has non-finite coordinates", ErrMalformed, index)
	}

	return Point{X: p.X, Y: p.Y}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

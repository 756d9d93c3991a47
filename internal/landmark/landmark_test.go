package landmark

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/tryon/internal/detector"
)

func TestNormalize(t *testing.T) {
	t.Run("extracts named anchors", func(t *testing.T) {
		set, err := Normalize([]detector.FaceLandmarks{detector.FrontalFace()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if set.LeftEyeOuter != (Point{X: 100, Y: 200}) {
			t.Errorf("unexpected left eye outer: %+v", set.LeftEyeOuter)
		}
		if set.RightEyeOuter != (Point{X: 160, Y: 200}) {
			t.Errorf("unexpected right eye outer: %+v", set.RightEyeOuter)
		}
		if set.NoseBridgeTop != (Point{X: 130, Y: 230}) {
			t.Errorf("unexpected nose bridge top: %+v", set.NoseBridgeTop)
		}
	})

	t.Run("no faces is ErrNoFace", func(t *testing.T) {
		_, err := Normalize(nil)
		if !errors.Is(err, ErrNoFace) {
			t.Errorf("expected ErrNoFace, got %v", err)
		}
	})

	t.Run("selects highest score", func(t *testing.T) {
		low := detector.FaceAt(10, 20, 30, 15, 40, 0.6)
		high := detector.FaceAt(300, 360, 200, 330, 230, 0.9)

		set, err := Normalize([]detector.FaceLandmarks{low, high})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set.LeftEyeOuter.X != 300 {
			t.Errorf("expected the higher scoring face, got left eye x %f", set.LeftEyeOuter.X)
		}
	})

	t.Run("ties keep the first face", func(t *testing.T) {
		first := detector.FaceAt(10, 20, 30, 15, 40, 0.8)
		second := detector.FaceAt(300, 360, 200, 330, 230, 0.8)

		set, err := Normalize([]detector.FaceLandmarks{first, second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set.LeftEyeOuter.X != 10 {
			t.Errorf("expected the first face, got left eye x %f", set.LeftEyeOuter.X)
		}
	})

	t.Run("short payload is malformed", func(t *testing.T) {
		face := detector.FaceLandmarks{
			Points: make([]detector.Point3D, 50),
			Score:  0.9,
		}

		_, err := Normalize([]detector.FaceLandmarks{face})
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("NaN coordinate is malformed", func(t *testing.T) {
		face := detector.FrontalFace()
		face.Points[detector.NoseBridgeTop].Y = math.NaN()

		_, err := Normalize([]detector.FaceLandmarks{face})
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})
}

func TestAdapter_CustomIndices(t *testing.T) {
	face := detector.FaceLandmarks{
		Points: []detector.Point3D{
			{X: 1, Y: 2},
			{X: 3, Y: 4},
			{X: 5, Y: 6},
		},
	}

	adapter := NewAdapter(Indices{LeftEyeOuter: 2, RightEyeOuter: 0, NoseBridgeTop: 1})

	set, err := adapter.Normalize([]detector.FaceLandmarks{face})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.LeftEyeOuter != (Point{X: 5, Y: 6}) {
		t.Errorf("unexpected left eye outer: %+v", set.LeftEyeOuter)
	}
	if set.RightEyeOuter != (Point{X: 1, Y: 2}) {
		t.Errorf("unexpected right eye outer: %+v", set.RightEyeOuter)
	}
	if set.NoseBridgeTop != (Point{X: 3, Y: 4}) {
		t.Errorf("unexpected nose bridge top: %+v", set.NoseBridgeTop)
	}
}

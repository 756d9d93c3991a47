// Package detector provides face landmark detection interfaces and types.
package detector

// Face mesh landmark indices following the MediaPipe FaceMesh convention.
// Left and right are in image space: LeftEyeOuter has the smaller x for a
// face looking at the camera.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	ForeheadCenter = 10
	LeftEyeOuter   = 33
	NoseTip        = 1
	NoseBridgeTop  = 168
	RightEyeOuter  = 263
	NumLandmarks   = 468
)

// Point3D represents a point in image pixel coordinates with a relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks is one face as reported by a detector.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Scale returns a copy of the landmarks with x and y multiplied by sx and sy.
// Detectors reporting normalized coordinates use it to convert to pixels.
func (f FaceLandmarks) Scale(sx, sy float64) FaceLandmarks {
	scaled := FaceLandmarks{
		Points: make([]Point3D, len(f.Points)),
		Score:  f.Score,
	}
	for i, p := range f.Points {
		scaled.Points[i] = Point3D{X: p.X * sx, Y: p.Y * sy, Z: p.Z}
	}
	return scaled
}

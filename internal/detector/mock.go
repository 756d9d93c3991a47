package detector

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	faces   []FaceLandmarks
	err     error
	loadErr error
	state   State
	delay   time.Duration
	calls   int
}

// NewMockDetector creates a new MockDetector instance that is ready to detect.
func NewMockDetector() *MockDetector {
	return &MockDetector{state: StateReady}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetState sets the loading state reported by State.
func (m *MockDetector) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// SetLoadError moves the mock to StateFailed with err as its load error.
func (m *MockDetector) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateFailed
	m.loadErr = err
}

// LoadError returns the error set by SetLoadError.
func (m *MockDetector) LoadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}

// SetDelay makes Detect block for d or until its context is done.
func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// State returns the configured loading state.
func (m *MockDetector) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(ctx context.Context, frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	m.calls++
	faces, err, state, delay := m.faces, m.err, m.state, m.delay
	m.mu.Unlock()

	if state != StateReady {
		return nil, ErrNotReady
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FrontalFace returns a preset face whose eye corners sit at (100,200) and
// (160,200) with the nose bridge at (130,230).
func FrontalFace() FaceLandmarks {
	return FaceAt(100, 160, 200, 130, 230, 0.97)
}

// FaceAt builds a full-size landmark set with the named anchors at the given
// positions. Every other point is filled with the face center so the set is
// well formed.
func FaceAt(leftEyeX, rightEyeX, eyeY, noseX, noseY, score float64) FaceLandmarks {
	center := Point3D{X: (leftEyeX + rightEyeX) / 2, Y: eyeY}

	face := FaceLandmarks{
		Points: make([]Point3D, NumLandmarks),
		Score:  score,
	}
	for i := range face.Points {
		face.Points[i] = center
	}

	face.Points[LeftEyeOuter] = Point3D{X: leftEyeX, Y: eyeY}
	face.Points[RightEyeOuter] = Point3D{X: rightEyeX, Y: eyeY}
	face.Points[NoseBridgeTop] = Point3D{X: noseX, Y: noseY}
	face.Points[NoseTip] = Point3D{X: noseX, Y: noseY + 30}
	face.Points[ForeheadCenter] = Point3D{X: noseX, Y: eyeY - 60}

	return face
}

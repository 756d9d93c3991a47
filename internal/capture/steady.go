package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	blurKernel    = 21
	diffThreshold = 25
)

// SteadyDetector reports when consecutive camera frames stop changing, so a
// still is not taken while the subject is moving.
type SteadyDetector struct {
	mu        sync.Mutex
	maxChange float64
	required  int
	prev      gocv.Mat
	hasPrev   bool
	streak    int
}

// NewSteadyDetector creates a detector that considers the scene steady after
// required consecutive frames in which at most maxChange percent of pixels
// differ from the previous frame.
func NewSteadyDetector(maxChange float64, required int) *SteadyDetector {
	if required < 1 {
		required = 1
	}
	return &SteadyDetector{
		maxChange: maxChange,
		required:  required,
		prev:      gocv.NewMat(),
	}
}

// Observe feeds the next frame and returns whether the scene is steady along
// with the percentage of pixels that changed since the previous frame.
func (s *SteadyDetector) Observe(frame *gocv.Mat) (bool, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame == nil || frame.Empty() {
		s.streak = 0
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !s.hasPrev || s.prev.Rows() != blurred.Rows() || s.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&s.prev)
		s.hasPrev = true
		s.streak = 0
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, s.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	change := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&s.prev)

	if change <= s.maxChange {
		s.streak++
	} else {
		s.streak = 0
	}
	return s.streak >= s.required, change
}

// Reset forgets the previous frame and the steady streak.
func (s *SteadyDetector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasPrev = false
	s.streak = 0
}

// Close releases the stored frame.
func (s *SteadyDetector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prev.Close()
	s.prev = gocv.NewMat()
	s.hasPrev = false
	s.streak = 0
}

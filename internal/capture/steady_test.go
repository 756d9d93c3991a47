package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

// blockFrame returns a black frame with a white square at x.
func blockFrame(x int) gocv.Mat {
	m := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&m, image.Rect(x, 60, x+120, 180), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return m
}

func TestSteadyDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	tests := []struct {
		name      string
		positions []int
		want      []bool
	}{
		{
			name:      "still scene becomes steady",
			positions: []int{20, 20, 20, 20},
			want:      []bool{false, false, true, true},
		},
		{
			name:      "movement resets the streak",
			positions: []int{20, 20, 180, 180, 180},
			want:      []bool{false, false, false, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSteadyDetector(1.0, 2)
			defer d.Close()

			for i, x := range tt.positions {
				frame := blockFrame(x)
				got, change := d.Observe(&frame)
				frame.Close()

				if got != tt.want[i] {
					t.Errorf("frame %d: steady = %v, want %v (change %.2f%%)", i, got, tt.want[i], change)
				}
			}
		})
	}
}

func TestSteadyDetector_EmptyFrame(t *testing.T) {
	d := NewSteadyDetector(1.0, 1)
	defer d.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if ok, change := d.Observe(&empty); ok || change != 0 {
		t.Errorf("Observe(empty) = %v, %v", ok, change)
	}
	if ok, _ := d.Observe(nil); ok {
		t.Error("Observe(nil) reported steady")
	}
}

func TestSteadyDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	d := NewSteadyDetector(1.0, 1)
	defer d.Close()

	frame := blockFrame(20)
	defer frame.Close()

	d.Observe(&frame)
	if ok, _ := d.Observe(&frame); !ok {
		t.Fatal("second identical frame should be steady")
	}

	d.Reset()
	if ok, _ := d.Observe(&frame); ok {
		t.Error("first frame after Reset should not be steady")
	}
}

package capture

import (
	"errors"
	"testing"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name   string
		config CameraConfig
		want   CameraConfig
	}{
		{
			name:   "zero config",
			config: CameraConfig{},
			want:   CameraConfig{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS},
		},
		{
			name:   "partial size falls back",
			config: CameraConfig{Device: 1, Width: 640, FPS: 30},
			want:   CameraConfig{Device: 1, Width: DefaultWidth, Height: DefaultHeight, FPS: 30},
		},
		{
			name:   "negative warmup",
			config: CameraConfig{Width: 640, Height: 480, FPS: 5, Warmup: -3, Mirror: true},
			want:   CameraConfig{Width: 640, Height: 480, FPS: 5, Mirror: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)
			if got := cam.Config(); got != tt.want {
				t.Errorf("Config() = %+v, want %+v", got, tt.want)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open before Open()")
			}
		})
	}
}

func TestDefaultCameraConfig(t *testing.T) {
	cfg := DefaultCameraConfig()
	if !cfg.Mirror || cfg.Warmup != DefaultWarmup {
		t.Errorf("DefaultCameraConfig() = %+v", cfg)
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig())

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultCameraConfig())
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	defer cam.Close()

	if !cam.IsOpen() {
		t.Fatal("IsOpen() = false after Open()")
	}
	// a second Open keeps the device
	if err := cam.Open(); err != nil {
		t.Errorf("second Open() error = %v", err)
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
		t.Logf("frame is %dx%d, device may not support %dx%d", mat.Cols(), mat.Rows(), DefaultWidth, DefaultHeight)
	}
	mat.Close()

	if err := cam.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() = true after Close()")
	}
}

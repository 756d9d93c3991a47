package overlay

import (
	"errors"
	"testing"
)

func TestTransform_Validate(t *testing.T) {
	tests := []struct {
		name    string
		t       Transform
		wantErr bool
	}{
		{"positive size", Transform{Width: 10, Height: 8}, false},
		{"off canvas is allowed", Transform{Top: -500, Left: 9000, Width: 10, Height: 8}, false},
		{"zero width", Transform{Width: 0, Height: 8}, true},
		{"negative height", Transform{Width: 10, Height: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.t.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNonPositiveSize) {
				t.Errorf("expected ErrNonPositiveSize, got %v", err)
			}
		})
	}
}

func TestTransform_Geometry(t *testing.T) {
	tr := Transform{Top: 10, Left: 20, Width: 100, Height: 50}

	if tr.Right() != 120 {
		t.Errorf("Right() = %f, want 120", tr.Right())
	}
	if tr.Bottom() != 60 {
		t.Errorf("Bottom() = %f, want 60", tr.Bottom())
	}
	if tr.Ratio() != 2 {
		t.Errorf("Ratio() = %f, want 2", tr.Ratio())
	}
	if !tr.Contains(20, 10) || !tr.Contains(70, 35) {
		t.Error("expected points on and inside the rectangle to be contained")
	}
	if tr.Contains(19, 35) || tr.Contains(70, 61) {
		t.Error("expected points outside the rectangle not to be contained")
	}

	moved := tr.Translate(5, -3)
	if moved.Left != 25 || moved.Top != 7 || moved.Width != 100 || moved.Height != 50 {
		t.Errorf("unexpected translate result: %+v", moved)
	}
}

func TestDefaultTransform(t *testing.T) {
	tr := DefaultTransform(640, 480, 200, 160)

	want := Transform{Top: 160, Left: 220, Width: 200, Height: 160}
	if tr != want {
		t.Errorf("DefaultTransform() = %+v, want %+v", tr, want)
	}
}

func TestState(t *testing.T) {
	initial := Transform{Width: 10, Height: 10}

	t.Run("rejects invalid initial transform", func(t *testing.T) {
		if _, err := NewState(Transform{}); err == nil {
			t.Error("expected error for zero-size initial transform")
		}
	})

	t.Run("set and get", func(t *testing.T) {
		s, err := NewState(initial)
		if err != nil {
			t.Fatalf("NewState() error = %v", err)
		}

		next := Transform{Top: 1, Left: 2, Width: 3, Height: 4}
		if err := s.Set(next); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if got := s.Get(); got != next {
			t.Errorf("Get() = %+v, want %+v", got, next)
		}
	})

	t.Run("invalid set keeps previous value", func(t *testing.T) {
		s, _ := NewState(initial)

		if err := s.Set(Transform{Width: -1, Height: 4}); err == nil {
			t.Fatal("expected error")
		}
		if got := s.Get(); got != initial {
			t.Errorf("Get() = %+v, want %+v", got, initial)
		}
	})

	t.Run("reset", func(t *testing.T) {
		s, _ := NewState(initial)
		s.Set(Transform{Width: 50, Height: 50})

		def := Transform{Top: 5, Left: 5, Width: 20, Height: 16}
		if err := s.Reset(def); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if got := s.Get(); got != def {
			t.Errorf("Get() = %+v, want %+v", got, def)
		}
	})

	t.Run("subscribers receive updates in order", func(t *testing.T) {
		s, _ := NewState(initial)
		ch, cancel := s.Subscribe()
		defer cancel()

		for i := 1; i <= 3; i++ {
			s.Set(Transform{Left: float64(i), Width: 10, Height: 10})
		}

		for i := 1; i <= 3; i++ {
			got := <-ch
			if got.Left != float64(i) {
				t.Errorf("update %d: Left = %f", i, got.Left)
			}
		}
	})

	t.Run("slow subscriber keeps the latest update", func(t *testing.T) {
		s, _ := NewState(initial)
		ch, cancel := s.Subscribe()
		defer cancel()

		n := subscriberBuffer * 3
		for i := 1; i <= n; i++ {
			s.Set(Transform{Left: float64(i), Width: 10, Height: 10})
		}

		var last Transform
		for len(ch) > 0 {
			last = <-ch
		}
		if last.Left != float64(n) {
			t.Errorf("last update Left = %f, want %d", last.Left, n)
		}
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		s, _ := NewState(initial)
		ch, cancel := s.Subscribe()

		cancel()
		cancel()

		if _, ok := <-ch; ok {
			t.Error("expected closed channel")
		}

		// Writes after cancel must not panic.
		s.Set(Transform{Width: 1, Height: 1})
	})
}

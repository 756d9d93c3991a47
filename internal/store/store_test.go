package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/tryon/internal/overlay"
	"github.com/ayusman/tryon/internal/placement"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"settings", "exports"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Settings().Set("theme", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	got, err := s.Settings().Get("theme")
	if err != nil || got != "dark" {
		t.Errorf("Get() = %q, %v; want dark", got, err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestSettings_GetSetDelete(t *testing.T) {
	r := newTestStore(t).Settings()

	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := r.Set("camera", "0"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := r.Set("camera", "1"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if got, _ := r.Get("camera"); got != "1" {
		t.Errorf("Get() = %q, want 1", got)
	}

	if err := r.Delete("camera"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := r.Delete("camera"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSettings_Calibration(t *testing.T) {
	r := newTestStore(t).Settings()

	if _, err := r.Calibration(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Calibration() before save error = %v, want ErrNotFound", err)
	}

	want := placement.Config{VerticalOffset: 48.5, ScaleFactor: 2.05}
	if err := r.SetCalibration(want); err != nil {
		t.Fatalf("SetCalibration() error = %v", err)
	}

	got, err := r.Calibration()
	if err != nil {
		t.Fatalf("Calibration() error = %v", err)
	}
	if got != want {
		t.Errorf("Calibration() = %+v, want %+v", got, want)
	}

	if err := r.SetCalibration(placement.Config{VerticalOffset: 10, ScaleFactor: 0}); err == nil {
		t.Error("SetCalibration() accepted a zero scale factor")
	}
	if got, _ := r.Calibration(); got != want {
		t.Errorf("invalid calibration overwrote stored value: %+v", got)
	}

	if err := r.ClearCalibration(); err != nil {
		t.Fatalf("ClearCalibration() error = %v", err)
	}
	if _, err := r.Calibration(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Calibration() after clear error = %v, want ErrNotFound", err)
	}
}

func TestExports(t *testing.T) {
	r := newTestStore(t).Exports()

	first := &Export{
		ImageID:   "img-1",
		AssetID:   "bob",
		Transform: overlay.Transform{Top: 117.2, Left: 64, Width: 132, Height: 105.6},
		Bytes:     2048,
	}
	if err := r.Create(first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("Create() did not assign ID and time: %+v", first)
	}

	second := &Export{
		ImageID:   "img-2",
		AssetID:   "curls",
		Transform: overlay.Transform{Top: 1, Left: 2, Width: 3, Height: 4},
	}
	if err := r.Create(second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	all, err := r.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() returned %d exports, want 2", len(all))
	}
	if all[0].ID != second.ID {
		t.Errorf("List()[0] = %s, want newest %s", all[0].ID, second.ID)
	}
	if all[1].Transform != first.Transform || all[1].Bytes != 2048 {
		t.Errorf("List()[1] = %+v, want %+v", all[1], first)
	}

	limited, err := r.List(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("List(1) = %d exports, %v", len(limited), err)
	}

	if n, _ := r.Count(); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	bad := &Export{ImageID: "x", AssetID: "y", Transform: overlay.Transform{Width: 0, Height: 1}}
	if err := r.Create(bad); !errors.Is(err, overlay.ErrNonPositiveSize) {
		t.Errorf("Create(zero width) error = %v, want ErrNonPositiveSize", err)
	}
}

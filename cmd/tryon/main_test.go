package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ayusman/tryon/internal/config"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/fixture"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "tryon "+version) {
		t.Errorf("output = %q", out.String())
	}
}

func TestServeCommand_BadConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.toml"), "--env", ""})

	if err := root.Execute(); err == nil {
		t.Error("Execute() with a missing config file should fail")
	}
}

func TestServe_EmptyCatalog(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.AssetDir = filepath.Join(dir, "assets")
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Camera.Enabled = false
	cfg.Detector.Script = filepath.Join(dir, "missing.py")

	if err := os.MkdirAll(cfg.AssetDir, 0755); err != nil {
		t.Fatal(err)
	}
	// an empty asset directory is rejected before the server starts
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := serve(ctx, cfg, log.New(&bytes.Buffer{})); err == nil {
		t.Error("serve() with an empty catalog should fail")
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, "tryon.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.AssetDir = fixture.Catalog(t)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Camera.Enabled = false
	cfg.Detector.Script = filepath.Join(dir, "missing.py")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := serve(ctx, cfg, log.New(&bytes.Buffer{})); err != nil {
		t.Errorf("serve() error = %v", err)
	}
}

func TestNewDetector_FallsBackWhenScriptMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Detector.Script = filepath.Join(t.TempDir(), "missing.py")

	det := newDetector(cfg, log.New(&bytes.Buffer{}))
	defer det.Close()

	if det.State() != detector.StateFailed {
		t.Errorf("State() = %v, want failed", det.State())
	}
}

func TestFindWebDir_DataDir(t *testing.T) {
	// away from the repository's own web directory
	chdir(t, t.TempDir())
	for _, p := range []string{"web", "../web", "../../web"} {
		if _, err := os.Stat(p); err == nil {
			t.Skip("a relative web directory exists")
		}
	}

	dataDir := t.TempDir()
	if got := findWebDir(dataDir); got != "" {
		t.Errorf("findWebDir() = %q, want empty", got)
	}

	web := filepath.Join(dataDir, "web")
	if err := os.Mkdir(web, 0755); err != nil {
		t.Fatal(err)
	}
	if got := findWebDir(dataDir); got != web {
		t.Errorf("findWebDir() = %q, want %q", got, web)
	}
}

func TestFindWebDir_Relative(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "web"), 0755); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	got := findWebDir("")
	if filepath.Base(got) != "web" || !filepath.IsAbs(got) {
		t.Errorf("findWebDir() = %q, want absolute path to web", got)
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}

// Package config loads service configuration from a TOML file, an optional
// .env file and TRYON_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/interaction"
	"github.com/ayusman/tryon/internal/placement"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRYON_"

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig           `toml:"server"`
	DataDir     string                 `toml:"data_dir"`
	AssetDir    string                 `toml:"asset_dir"`
	LogLevel    string                 `toml:"log_level"`
	Detector    DetectorConfig         `toml:"detector"`
	Camera      CameraConfig           `toml:"camera"`
	Placement   placement.Config       `toml:"placement"`
	Interaction interaction.Config     `toml:"interaction"`
	Snapshot    capture.SnapshotConfig `toml:"snapshot"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	StaticDir   string `toml:"static_dir"`
	PreviewFPS  int    `toml:"preview_fps"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

// DetectorConfig configures the FaceMesh subprocess.
type DetectorConfig struct {
	Script        string   `toml:"script"`
	Python        string   `toml:"python"`
	MinConfidence float64  `toml:"min_confidence"`
	IdleTimeout   Duration `toml:"idle_timeout"`
}

// CameraConfig selects the snapshot camera.
type CameraConfig struct {
	Enabled bool `toml:"enabled"`
	capture.CameraConfig
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := ".tryon"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".tryon")
	}

	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			PreviewFPS:  10,
			JPEGQuality: 85,
		},
		DataDir:  dataDir,
		AssetDir: "assets",
		LogLevel: "info",
		Detector: DetectorConfig{
			MinConfidence: 0.5,
			IdleTimeout:   Duration{30 * time.Second},
		},
		Camera:      CameraConfig{Enabled: true, CameraConfig: capture.DefaultCameraConfig()},
		Placement:   placement.DefaultConfig(),
		Interaction: interaction.DefaultConfig(),
		Snapshot:    capture.DefaultSnapshotConfig(),
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. envFile is loaded when it exists.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *float64) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = f
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("STATIC_DIR", &c.Server.StaticDir)
	str("DATA_DIR", &c.DataDir)
	str("ASSET_DIR", &c.AssetDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("PYTHON", &c.Detector.Python)
	str("FACEMESH_SCRIPT", &c.Detector.Script)

	if err := integer("CAMERA_DEVICE", &c.Camera.Device); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "CAMERA"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCAMERA: %w", EnvPrefix, err)
		}
		c.Camera.Enabled = enabled
	}
	if err := num("VERTICAL_OFFSET", &c.Placement.VerticalOffset); err != nil {
		return err
	}
	if err := num("SCALE_FACTOR", &c.Placement.ScaleFactor); err != nil {
		return err
	}
	return num("MIN_CONFIDENCE", &c.Detector.MinConfidence)
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if err := c.Placement.Validate(); err != nil {
		return fmt.Errorf("placement: %w", err)
	}
	if c.Interaction.MinSize <= 0 || c.Interaction.HandleRadius < 0 {
		return errors.New("interaction: min_size must be positive and handle_radius non-negative")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence %g out of range [0,1]", c.Detector.MinConfidence)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// DBPath returns the sqlite database location inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "tryon.db")
}

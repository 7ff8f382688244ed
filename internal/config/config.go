package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SensorConfig selects and tunes the frame source.
type SensorConfig struct {
	// Kind is "synthetic" (moving hot spots, no hardware needed) or
	// "static" (a fixed ramp, useful when checking the panel wiring).
	Kind string `yaml:"kind" json:"kind"`

	// Seed makes the synthetic scene reproducible.
	Seed int64 `yaml:"seed" json:"seed"`

	// RefreshHz is the camera frame rate. The source in the field runs the
	// MLX90640 at 1 Hz; capture never returns faster than this.
	RefreshHz float64 `yaml:"refresh_hz" json:"refresh_hz"`

	// AmbientC / SpanC shape the synthetic scene.
	AmbientC float64 `yaml:"ambient_c" json:"ambient_c"`
	SpanC    float64 `yaml:"span_c" json:"span_c"`

	// LEDPin is the periph GPIO name lit during capture (e.g. "GPIO13").
	// Empty disables the indicator.
	LEDPin string `yaml:"led_pin" json:"led_pin"`
}

// DisplayConfig describes the e-paper panel and how it is driven.
type DisplayConfig struct {
	// Driver is "epd" (SPI panel through periph) or "headless".
	Driver string `yaml:"driver" json:"driver"`

	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// SPIPort is passed to spireg.Open; "" selects the first port.
	SPIPort string `yaml:"spi_port" json:"spi_port"`
	DCPin   string `yaml:"dc_pin" json:"dc_pin"`
	RSTPin  string `yaml:"rst_pin" json:"rst_pin"`
	BusyPin string `yaml:"busy_pin" json:"busy_pin"`

	// MinRefreshSeconds is the minimum interval the medium needs between
	// two full refreshes.
	MinRefreshSeconds float64 `yaml:"min_refresh_seconds" json:"min_refresh_seconds"`

	// MaxBusyPolls and BusyTimeoutSeconds bound the post-refresh busy poll.
	MaxBusyPolls       int     `yaml:"max_busy_polls" json:"max_busy_polls"`
	BusyTimeoutSeconds float64 `yaml:"busy_timeout_seconds" json:"busy_timeout_seconds"`
}

// RenderConfig controls quantization and layout.
type RenderConfig struct {
	// BandPolicy is "quantile" or "linear".
	BandPolicy string `yaml:"band_policy" json:"band_policy"`

	// Indexing is "row-major" (y*32+x) or "legacy" (y*24+x, reproduces the
	// transposed lookup of the earliest firmware).
	Indexing string `yaml:"indexing" json:"indexing"`

	// Layout is "sides" (°C left, °F right) or "banner".
	Layout string `yaml:"layout" json:"layout"`

	// Scaling applies to the banner layout: "uniform" or "tiled".
	Scaling string `yaml:"scaling" json:"scaling"`

	// TextPadding is the gap between the screen edge and the side text blocks.
	TextPadding int `yaml:"text_padding" json:"text_padding"`
}

// Config is the top-level application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DiagCron is the cron schedule for the periodic diagnostics report
	// (frame counters and heap usage). Empty disables it.
	DiagCron string `yaml:"diag_cron" json:"diag_cron"`

	Sensor  SensorConfig  `yaml:"sensor" json:"sensor"`
	Display DisplayConfig `yaml:"display" json:"display"`
	Render  RenderConfig  `yaml:"render" json:"render"`
}

// DefaultConfig returns an in-memory default configuration matching a
// 2.9" 296x128 four-grey panel fed by a 1 Hz 32x24 sensor.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		DiagCron: "@every 10m",
		Sensor: SensorConfig{
			Kind:      "synthetic",
			Seed:      1,
			RefreshHz: 1,
			AmbientC:  22,
			SpanC:     14,
			LEDPin:    "",
		},
		Display: DisplayConfig{
			Driver:             "headless",
			Width:              296,
			Height:             128,
			SPIPort:            "",
			DCPin:              "GPIO25",
			RSTPin:             "GPIO17",
			BusyPin:            "GPIO24",
			MinRefreshSeconds:  5,
			MaxBusyPolls:       5_000_000,
			BusyTimeoutSeconds: 30,
		},
		Render: RenderConfig{
			BandPolicy:  "quantile",
			Indexing:    "row-major",
			Layout:      "sides",
			Scaling:     "uniform",
			TextPadding: 10,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. Unknown enum values fall
// back to the default rather than failing.
func (c *Config) Normalize() {
	def := DefaultConfig()

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = def.LogLevel
	}

	switch c.Sensor.Kind {
	case "synthetic", "static":
	default:
		c.Sensor.Kind = def.Sensor.Kind
	}
	if c.Sensor.RefreshHz <= 0 {
		c.Sensor.RefreshHz = def.Sensor.RefreshHz
	}
	if c.Sensor.SpanC <= 0 {
		c.Sensor.SpanC = def.Sensor.SpanC
	}

	switch c.Display.Driver {
	case "epd", "headless":
	default:
		c.Display.Driver = def.Display.Driver
	}
	if c.Display.Width <= 0 {
		c.Display.Width = def.Display.Width
	}
	if c.Display.Height <= 0 {
		c.Display.Height = def.Display.Height
	}
	if c.Display.DCPin == "" {
		c.Display.DCPin = def.Display.DCPin
	}
	if c.Display.RSTPin == "" {
		c.Display.RSTPin = def.Display.RSTPin
	}
	if c.Display.BusyPin == "" {
		c.Display.BusyPin = def.Display.BusyPin
	}
	if c.Display.MinRefreshSeconds < 0 {
		c.Display.MinRefreshSeconds = def.Display.MinRefreshSeconds
	}
	if c.Display.MaxBusyPolls <= 0 {
		c.Display.MaxBusyPolls = def.Display.MaxBusyPolls
	}
	if c.Display.BusyTimeoutSeconds <= 0 {
		c.Display.BusyTimeoutSeconds = def.Display.BusyTimeoutSeconds
	}

	switch c.Render.BandPolicy {
	case "quantile", "linear":
	default:
		c.Render.BandPolicy = def.Render.BandPolicy
	}
	switch c.Render.Indexing {
	case "row-major", "legacy":
	default:
		c.Render.Indexing = def.Render.Indexing
	}
	switch c.Render.Layout {
	case "sides", "banner":
	default:
		c.Render.Layout = def.Render.Layout
	}
	switch c.Render.Scaling {
	case "uniform", "tiled":
	default:
		c.Render.Scaling = def.Render.Scaling
	}
	if c.Render.TextPadding < 0 {
		c.Render.TextPadding = def.Render.TextPadding
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML on top of the defaults (missing keys keep their default)
//   - normalize
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".thermepd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

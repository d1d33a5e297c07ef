// Package config provides TOML configuration loading for STASYS.
//
// The configuration file supports the following structure:
//
//	[camera]
//	label = "0"
//	width = 1280
//	height = 720
//
//	[audio]
//	label = "default"
//	threshold = 0.05
//
//	[detector]
//	min_threshold = 10
//	max_threshold = 200
//
//	[shoot]
//	up_down = false
//	fine_adjust_x_mm = 0.0
//	fine_adjust_y_mm = 0.0
//
//	[calibration]
//	x_px = 0.0
//	y_px = 0.0
//
// Example usage:
//
//	cfg, err := config.Load("config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Camera label: %s\n", cfg.Camera.Label)
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the complete configuration for STASYS.
type Config struct {
	Camera      CameraConfig      `toml:"camera"`
	Audio       AudioConfig       `toml:"audio"`
	Detector    DetectorConfig    `toml:"detector"`
	Shoot       ShootConfig       `toml:"shoot"`
	Calibration CalibrationConfig `toml:"calibration"`
}

// CameraConfig holds video source settings.
type CameraConfig struct {
	// Label is the capture device name or file path (default: "0").
	Label string `toml:"label"`
	// Width is the preview/calibration output width in pixels (default: 1280).
	Width int `toml:"width"`
	// Height is the preview/calibration output height in pixels (default: 720).
	Height int `toml:"height"`
}

// AudioConfig holds audio source / trigger settings.
type AudioConfig struct {
	// Label is the capture device name (default: "default").
	Label string `toml:"label"`
	// Threshold is the RMS level a sample must cross to register a
	// trigger (default: 0.05).
	Threshold float64 `toml:"threshold"`
}

// DetectorConfig holds the blob detector's tunable thresholds. The
// remaining parameters (area, circularity, inertia) are fixed
// constants, not user-configurable.
type DetectorConfig struct {
	// MinThreshold is the blob detector's lower binarization threshold
	// (default: 10).
	MinThreshold float64 `toml:"min_threshold"`
	// MaxThreshold is the blob detector's upper binarization threshold
	// (default: 200).
	MaxThreshold float64 `toml:"max_threshold"`
}

// ShootConfig holds per-session shoot engine settings.
type ShootConfig struct {
	// UpDown enables the rise-then-descend arming gate; when false a
	// shot starts on the first detected blob (default: false).
	UpDown bool `toml:"up_down"`
	// FineAdjustXMM/FineAdjustYMM are the additive zero-error offsets
	// applied after coordinate mapping (default: 0, 0).
	FineAdjustXMM float64 `toml:"fine_adjust_x_mm"`
	FineAdjustYMM float64 `toml:"fine_adjust_y_mm"`
}

// CalibrationConfig holds the last-known calibration point, so a
// shoot session can be started without re-running calibration first.
type CalibrationConfig struct {
	XPx float64 `toml:"x_px"`
	YPx float64 `toml:"y_px"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Label:  "0",
			Width:  1280,
			Height: 720,
		},
		Audio: AudioConfig{
			Label:     "default",
			Threshold: 0.05,
		},
		Detector: DetectorConfig{
			MinThreshold: 10,
			MaxThreshold: 200,
		},
		Shoot: ShootConfig{
			UpDown: false,
		},
	}
}

// Load reads and parses a TOML configuration file.
// If the file does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 {
		return fmt.Errorf("camera width must be positive, got %d", c.Camera.Width)
	}
	if c.Camera.Height <= 0 {
		return fmt.Errorf("camera height must be positive, got %d", c.Camera.Height)
	}
	if c.Camera.Label == "" {
		return fmt.Errorf("camera label must not be empty")
	}
	if c.Audio.Label == "" {
		return fmt.Errorf("audio label must not be empty")
	}
	if c.Audio.Threshold < 0 {
		return fmt.Errorf("audio threshold must not be negative, got %f", c.Audio.Threshold)
	}
	if c.Detector.MinThreshold < 0 || c.Detector.MaxThreshold <= c.Detector.MinThreshold {
		return fmt.Errorf("detector thresholds must satisfy 0 <= min < max, got min=%f max=%f", c.Detector.MinThreshold, c.Detector.MaxThreshold)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Camera.Label != "0" {
		t.Errorf("expected Label \"0\", got %q", cfg.Camera.Label)
	}
	if cfg.Camera.Width != 1280 {
		t.Errorf("expected Width 1280, got %d", cfg.Camera.Width)
	}
	if cfg.Camera.Height != 720 {
		t.Errorf("expected Height 720, got %d", cfg.Camera.Height)
	}
	if cfg.Audio.Label != "default" {
		t.Errorf("expected Audio.Label \"default\", got %q", cfg.Audio.Label)
	}
	if cfg.Audio.Threshold != 0.05 {
		t.Errorf("expected Audio.Threshold 0.05, got %f", cfg.Audio.Threshold)
	}
	if cfg.Detector.MinThreshold != 10 {
		t.Errorf("expected MinThreshold 10, got %f", cfg.Detector.MinThreshold)
	}
	if cfg.Detector.MaxThreshold != 200 {
		t.Errorf("expected MaxThreshold 200, got %f", cfg.Detector.MaxThreshold)
	}
	if cfg.Shoot.UpDown {
		t.Error("expected UpDown to default to false")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for non-existent file")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	content := `
[camera]
label = "USB Camera"
width = 1920
height = 1080

[audio]
label = "Scarlett 2i2"
threshold = 0.1

[detector]
min_threshold = 20
max_threshold = 180

[shoot]
up_down = true
fine_adjust_x_mm = 1.5
fine_adjust_y_mm = -2.0

[calibration]
x_px = 320.0
y_px = 240.0
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Camera.Label != "USB Camera" {
		t.Errorf("expected Label \"USB Camera\", got %q", cfg.Camera.Label)
	}
	if cfg.Camera.Width != 1920 {
		t.Errorf("expected Width 1920, got %d", cfg.Camera.Width)
	}
	if cfg.Audio.Threshold != 0.1 {
		t.Errorf("expected Audio.Threshold 0.1, got %f", cfg.Audio.Threshold)
	}
	if cfg.Detector.MinThreshold != 20 {
		t.Errorf("expected MinThreshold 20, got %f", cfg.Detector.MinThreshold)
	}
	if !cfg.Shoot.UpDown {
		t.Error("expected UpDown to be true")
	}
	if cfg.Shoot.FineAdjustXMM != 1.5 {
		t.Errorf("expected FineAdjustXMM 1.5, got %f", cfg.Shoot.FineAdjustXMM)
	}
	if cfg.Calibration.XPx != 320.0 {
		t.Errorf("expected Calibration.XPx 320.0, got %f", cfg.Calibration.XPx)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invalid.toml")
	if err := os.WriteFile(path, []byte("invalid [ toml"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestValidate_InvalidWidth(t *testing.T) {
	cfg := Default()
	cfg.Camera.Width = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid width")
	}
}

func TestValidate_InvalidHeight(t *testing.T) {
	cfg := Default()
	cfg.Camera.Height = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid height")
	}
}

func TestValidate_EmptyCameraLabel(t *testing.T) {
	cfg := Default()
	cfg.Camera.Label = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty camera label")
	}
}

func TestValidate_EmptyAudioLabel(t *testing.T) {
	cfg := Default()
	cfg.Audio.Label = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty audio label")
	}
}

func TestValidate_NegativeThreshold(t *testing.T) {
	cfg := Default()
	cfg.Audio.Threshold = -0.1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative audio threshold")
	}
}

func TestValidate_InvalidDetectorThresholds(t *testing.T) {
	cfg := Default()
	cfg.Detector.MinThreshold = 200
	cfg.Detector.MaxThreshold = 100
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max <= min detector threshold")
	}
}

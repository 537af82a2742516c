package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MEDIA_STORAGE_PATH", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Face.Tolerance != 0.6 || cfg.Parking.OccupancyThreshold != 0.15 {
		t.Fatalf("defaults = %+v / %+v", cfg.Face, cfg.Parking)
	}
	if cfg.Plate.MinAspect != 1.5 || cfg.Plate.MaxAspect != 5.0 || cfg.Plate.MaxContours != 10 {
		t.Fatalf("plate defaults = %+v", cfg.Plate)
	}
	if !strings.HasSuffix(cfg.CapturesPath, DefaultCapturesSubDir) {
		t.Fatalf("captures path = %q", cfg.CapturesPath)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("jwt secret should fall back to a development value")
	}
	if cfg.MaxPixels != 40_000_000 {
		t.Fatalf("max pixels = %d", cfg.MaxPixels)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "siteguard.yaml")
	yaml := `
port: "9000"
face:
  backend: stub
  tolerance: 0.5
parking:
  overflow_policy: expand
  grid_columns: 4
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITEGUARD_CONFIG_FILE", path)
	t.Setenv("MEDIA_STORAGE_PATH", dir)
	t.Setenv("FACE_TOLERANCE", "0.45")
	t.Setenv("MAX_PIXELS", "2000000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9000" || cfg.Face.Backend != FaceBackendStub {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Face.Tolerance != 0.45 {
		t.Fatalf("env should override file, tolerance = %g", cfg.Face.Tolerance)
	}
	if cfg.MaxPixels != 2_000_000 {
		t.Fatalf("max pixels = %d", cfg.MaxPixels)
	}
	if cfg.Parking.OverflowPolicy != OverflowExpand || cfg.Parking.GridColumns != 4 {
		t.Fatalf("parking = %+v", cfg.Parking)
	}
	// untouched keys keep their defaults
	if cfg.Plate.Reader != PlateReaderStub {
		t.Fatalf("plate reader = %q", cfg.Plate.Reader)
	}
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("MEDIA_STORAGE_PATH", t.TempDir())
	t.Setenv("DETECTION_WORKERS", "lots")
	t.Setenv("OCCUPANCY_THRESHOLD", "abc")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DetectionWorkers != defaultDetectionWorkers || cfg.Parking.OccupancyThreshold != defaultOccupancyThreshold {
		t.Fatalf("invalid env values should be ignored: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	bad := defaults()
	bad.Face.Backend = "magic"
	bad.Plate.MinAspect = 6
	bad.Parking.OccupancyThreshold = 1.5
	bad.Parking.OverflowPolicy = "guess"
	bad.MaxPixels = 0
	err := bad.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"face backend", "aspect range", "occupancy threshold", "overflow policy", "max pixels"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("SITEGUARD_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

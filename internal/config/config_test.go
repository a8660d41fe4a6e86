package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtxerr/zonalseries/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	if cfg.Layout.Extension != ".asc" {
		t.Errorf("expected default extension .asc, got %s", cfg.Layout.Extension)
	}

	if cfg.Pipeline.FillValue != 0 {
		t.Errorf("expected fill value 0, got %f", cfg.Pipeline.FillValue)
	}

	if cfg.Query.DefaultStatistic != "mean" {
		t.Errorf("expected default statistic mean, got %s", cfg.Query.DefaultStatistic)
	}
}

func TestDefaultConfigIsolated(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()

	a.Query.AllowedStatistics[0] = "changed"
	if b.Query.AllowedStatistics[0] == "changed" {
		t.Error("DefaultConfig instances share the allow-list slice")
	}
}

func TestConfigValidateCollectsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layout.RasterDir = ""
	cfg.Storage.Format = "xlsx"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, errors.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if !errors.IsConfiguration(err) {
		t.Error("expected configuration category")
	}
	msg := err.Error()
	if !strings.Contains(msg, "layout: raster_dir") || !strings.Contains(msg, "storage: invalid format") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestConfigValidate(t *testing.T) {
	// Invalid: extension without dot
	cfg := DefaultConfig()
	cfg.Layout.Extension = "tif"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for extension without dot")
	}

	// Invalid: empty raster dir
	cfg = DefaultConfig()
	cfg.Layout.RasterDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty raster_dir")
	}

	// Invalid: default statistic outside allow-list
	cfg = DefaultConfig()
	cfg.Query.DefaultStatistic = "median"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for default outside allow-list")
	}

	// Invalid: unknown storage format
	cfg = DefaultConfig()
	cfg.Storage.Format = "xlsx"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown format")
	}

	// Invalid: sketch accuracy
	cfg = DefaultConfig()
	cfg.Pipeline.SketchAccuracy = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero sketch accuracy")
	}

	// Invalid: log level
	cfg = DefaultConfig()
	cfg.Logging.Level = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
layout:
  assets_dir: /data/assets
  raster_dir: ndvi
  vector_file: zones/fields.geojson
  series_dir: /var/lib/zonalseries
  prefix: site_
  extension: .asc
pipeline:
  statistics: [mean, std, median]
  fill_value: .nan
  sketch_accuracy: 0.02
storage:
  format: parquet
  compression: snappy
query:
  allowed_statistics: [mean, std, median]
  default_statistic: median
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Layout.Prefix != "site_" {
		t.Errorf("expected prefix site_, got %s", cfg.Layout.Prefix)
	}
	if got := cfg.Layout.RasterPath(); got != filepath.Join("/data/assets", "ndvi") {
		t.Errorf("unexpected raster path %s", got)
	}
	if got := cfg.Layout.SeriesPath(); got != "/var/lib/zonalseries" {
		t.Errorf("absolute series dir should be kept, got %s", got)
	}
	if len(cfg.Pipeline.Statistics) != 3 {
		t.Errorf("expected 3 statistics, got %v", cfg.Pipeline.Statistics)
	}
	if !math.IsNaN(cfg.Pipeline.FillValue) {
		t.Errorf("expected NaN fill value, got %f", cfg.Pipeline.FillValue)
	}
	if cfg.Storage.Format != "parquet" {
		t.Errorf("expected parquet format, got %s", cfg.Storage.Format)
	}
	if !cfg.Logging.JSON {
		t.Error("expected json logging")
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("layout: [unclosed"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Layout.AssetsDir = tmpDir

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, cfg.Layout.SeriesDir))
	if err != nil {
		t.Fatalf("series dir should exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("series path should be a directory")
	}
}

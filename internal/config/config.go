// Package config loads and validates the zonalseries YAML configuration.
//
// Every component receives the part of the configuration it needs at
// construction time; there is no process-wide path state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/zonalseries/config"
)

// Config represents the complete zonalseries configuration.
type Config struct {
	// Layout is the directory layout of rasters, zones and series.
	Layout Layout `yaml:"layout"`

	// Pipeline configures table construction.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Storage configures persisted series.
	Storage StorageConfig `yaml:"storage"`

	// Query configures the query boundary.
	Query QueryConfig `yaml:"query"`

	// Logging configures the global logger.
	Logging LoggingConfig `yaml:"logging"`
}

// Layout enumerates every path and naming convention the components rely on.
// Relative RasterDir, VectorFile and SeriesDir are resolved against AssetsDir.
type Layout struct {
	// AssetsDir is the root assets directory.
	AssetsDir string `yaml:"assets_dir"`

	// RasterDir holds the snapshot files.
	RasterDir string `yaml:"raster_dir"`

	// VectorFile is the zone definition file (GeoJSON).
	VectorFile string `yaml:"vector_file"`

	// ZoneNameProperty is the feature property holding the zone identifier.
	ZoneNameProperty string `yaml:"zone_name_property"`

	// SeriesDir holds persisted tables, one file per statistic.
	SeriesDir string `yaml:"series_dir"`

	// Prefix is stripped from snapshot names before date parsing.
	Prefix string `yaml:"prefix"`

	// Extension is the snapshot file extension, including the dot.
	Extension string `yaml:"extension"`
}

// PipelineConfig configures table construction.
type PipelineConfig struct {
	// Statistics built when none are given on the command line.
	Statistics []string `yaml:"statistics"`

	// FillValue replaces missing zone statistics. Use .nan to keep
	// missing cells distinguishable from zero.
	FillValue float64 `yaml:"fill_value"`

	// SketchAccuracy is the DDSketch relative accuracy for median and
	// percentile statistics.
	SketchAccuracy float64 `yaml:"sketch_accuracy"`
}

// StorageConfig configures persisted series.
type StorageConfig struct {
	// Format is the on-disk codec: csv or parquet.
	Format string `yaml:"format"`

	// Compression is the Parquet compression: snappy, zstd, lz4, gzip, none.
	Compression string `yaml:"compression"`
}

// QueryConfig configures the query boundary.
type QueryConfig struct {
	// AllowedStatistics may be requested by name.
	AllowedStatistics []string `yaml:"allowed_statistics"`

	// DefaultStatistic replaces any name outside AllowedStatistics.
	DefaultStatistic string `yaml:"default_statistic"`

	// SQLMemoryLimit is the DuckDB memory limit of the SQL explorer.
	SQLMemoryLimit string `yaml:"sql_memory_limit"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// JSON switches to JSON output.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Layout: Layout{
			AssetsDir:        defaults.DefaultAssetsDir,
			RasterDir:        defaults.DefaultRasterSubdir,
			VectorFile:       defaults.DefaultVectorFile,
			ZoneNameProperty: defaults.DefaultZoneNameProperty,
			SeriesDir:        defaults.DefaultSeriesSubdir,
			Prefix:           defaults.DefaultSnapshotPrefix,
			Extension:        defaults.DefaultSnapshotExtension,
		},
		Pipeline: PipelineConfig{
			Statistics:     append([]string(nil), defaults.DefaultStatistics...),
			FillValue:      defaults.DefaultFillValue,
			SketchAccuracy: defaults.DefaultSketchAccuracy,
		},
		Storage: StorageConfig{
			Format:      defaults.DefaultStorageFormat,
			Compression: defaults.DefaultCompression,
		},
		Query: QueryConfig{
			AllowedStatistics: append([]string(nil), defaults.DefaultAllowedStatistics...),
			DefaultStatistic:  defaults.DefaultStatistic,
			SQLMemoryLimit:    defaults.DefaultSQLMemoryLimit,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// resolve joins p onto AssetsDir unless p is absolute.
func (l Layout) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || l.AssetsDir == "" {
		return p
	}
	return filepath.Join(l.AssetsDir, p)
}

// RasterPath returns the resolved raster directory.
func (l Layout) RasterPath() string {
	return l.resolve(l.RasterDir)
}

// VectorPath returns the resolved zone definition file.
func (l Layout) VectorPath() string {
	return l.resolve(l.VectorFile)
}

// SeriesPath returns the resolved series directory.
func (l Layout) SeriesPath() string {
	return l.resolve(l.SeriesDir)
}

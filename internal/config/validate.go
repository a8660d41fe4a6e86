package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/validation"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	errs := errors.NewValidationErrors()

	errs.Add(errors.Wrap(c.Layout.Validate(), "layout"))
	errs.Add(errors.Wrap(c.Pipeline.Validate(), "pipeline"))
	errs.Add(errors.Wrap(c.Storage.Validate(), "storage"))
	errs.Add(errors.Wrap(c.Query.Validate(), "query"))

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add(errors.Wrap(err, "logging"))
	}

	return errs.Err()
}

// Validate checks the layout configuration.
func (c *Layout) Validate() error {
	errs := errors.NewValidationErrors()

	if c.RasterDir == "" {
		errs.AddMissing("raster_dir")
	}
	if c.VectorFile == "" {
		errs.AddMissing("vector_file")
	}
	if c.SeriesDir == "" {
		errs.AddMissing("series_dir")
	}
	if c.ZoneNameProperty == "" {
		errs.AddMissing("zone_name_property")
	}
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		errs.AddField("extension", fmt.Sprintf("%q must start with a dot", c.Extension))
	}
	if strings.ContainsRune(c.Prefix, os.PathSeparator) {
		errs.AddField("prefix", fmt.Sprintf("%q must not contain a path separator", c.Prefix))
	}

	return errs.Err()
}

// Validate checks the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	errs := errors.NewValidationErrors()

	if len(c.Statistics) == 0 {
		errs.AddMissing("statistics")
	}
	for _, s := range c.Statistics {
		errs.Add(validation.ValidateStatisticName(s))
	}

	if c.SketchAccuracy <= 0 || c.SketchAccuracy >= 1 {
		errs.AddField("sketch_accuracy", "must be between 0 and 1")
	}

	return errs.Err()
}

// Validate checks the storage configuration.
func (c *StorageConfig) Validate() error {
	errs := errors.NewValidationErrors()

	switch c.Format {
	case "csv", "parquet":
	default:
		errs.AddField("format", "must be one of: csv, parquet")
	}

	validAlgorithms := map[string]bool{
		"snappy": true,
		"zstd":   true,
		"lz4":    true,
		"gzip":   true,
		"none":   true,
		"":       true, // Empty means uncompressed
	}
	if !validAlgorithms[c.Compression] {
		errs.AddField("compression", "must be one of: snappy, zstd, lz4, gzip, none")
	}

	return errs.Err()
}

// Validate checks the query configuration.
func (c *QueryConfig) Validate() error {
	errs := errors.NewValidationErrors()

	if len(c.AllowedStatistics) == 0 {
		errs.AddMissing("allowed_statistics")
	}

	if c.DefaultStatistic == "" {
		errs.AddMissing("default_statistic")
	} else if !slices.Contains(c.AllowedStatistics, c.DefaultStatistic) {
		errs.AddField("default_statistic", fmt.Sprintf("%q is not in allowed_statistics", c.DefaultStatistic))
	}

	return errs.Err()
}

// EnsureDirectories creates the directories the pipeline writes to.
// The raster directory is only read and is left alone.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Layout.SeriesPath(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Package config provides configuration defaults for zonalseries.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command line flags.
package config

// =============================================================================
// Layout Defaults
// =============================================================================

const (
	// DefaultAssetsDir is the root of the conventional directory layout.
	// Override via config: layout.assets_dir
	DefaultAssetsDir = "assets"

	// DefaultRasterSubdir holds the dated raster snapshots.
	// Override via config: layout.raster_dir
	DefaultRasterSubdir = "rasterv2"

	// DefaultVectorFile is the zone definition file, relative to the assets dir.
	// Override via config: layout.vector_file
	DefaultVectorFile = "shape/agrospace_piloto.geojson"

	// DefaultSeriesSubdir holds one persisted table per statistic.
	// Override via config: layout.series_dir
	DefaultSeriesSubdir = "timeseries"

	// DefaultSnapshotPrefix is stripped from snapshot file names before the
	// date is parsed.
	// Override via config: layout.prefix
	DefaultSnapshotPrefix = "agrospace_piloto_"

	// DefaultSnapshotExtension is the only extension the locator picks up.
	// Override via config: layout.extension
	DefaultSnapshotExtension = ".asc"

	// DefaultZoneNameProperty is the GeoJSON feature property used as the
	// zone identifier.
	// Override via config: layout.zone_name_property
	DefaultZoneNameProperty = "Name"
)

// =============================================================================
// Snapshot Naming
// =============================================================================

const (
	// SnapshotDateLayout is the only accepted date format in snapshot file
	// names (YYYY-MM-DD). Not configurable.
	SnapshotDateLayout = "2006-01-02"
)

// =============================================================================
// Pipeline Defaults
// =============================================================================

const (
	// DefaultFillValue replaces statistics the aggregator could not compute
	// for a zone. Zero matches historical tables; it cannot be told apart
	// from a measured zero.
	// Override via config: pipeline.fill_value
	DefaultFillValue = 0.0

	// DefaultSketchAccuracy is the relative accuracy of the DDSketch used
	// for median and percentile zone statistics (0.01 = 1%).
	// Override via config: pipeline.sketch_accuracy
	DefaultSketchAccuracy = 0.01
)

// DefaultStatistics is the set of statistics built by a plain `build`.
var DefaultStatistics = []string{"mean"}

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultStatistic is served when a caller asks for a statistic outside
	// the allow-list.
	// Override via config: query.default_statistic
	DefaultStatistic = "mean"

	// DefaultSQLMemoryLimit bounds the DuckDB explorer.
	// Override via config: query.sql_memory_limit
	DefaultSQLMemoryLimit = "512MB"
)

// DefaultAllowedStatistics is the query allow-list.
var DefaultAllowedStatistics = []string{"mean", "std"}

// =============================================================================
// Storage Defaults
// =============================================================================

const (
	// DefaultStorageFormat is the codec of persisted series: csv or parquet.
	// Override via config: storage.format
	DefaultStorageFormat = "csv"

	// DefaultCompression is the Parquet compression algorithm.
	// Override via config: storage.compression
	DefaultCompression = "zstd"
)

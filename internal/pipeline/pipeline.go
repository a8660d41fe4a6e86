// Package pipeline builds per-statistic time-series tables from dated
// raster snapshots and a zone catalog.
//
// A run visits the snapshots once, in the order given, asking the zonal
// aggregator for every requested statistic at each snapshot. Either every
// table is produced or the run fails with a single *RunError.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	defaults "github.com/xtxerr/zonalseries/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/raster"
	"github.com/xtxerr/zonalseries/internal/series"
	"github.com/xtxerr/zonalseries/internal/zonal"
	"github.com/xtxerr/zonalseries/internal/zones"
)

// Config configures a Pipeline.
type Config struct {
	// FillValue is written for zones the aggregator reports as missing.
	// Use NaN to keep missing cells distinguishable from zero.
	FillValue float64

	// AllowEmpty makes a run over zero snapshots succeed with empty tables
	// instead of failing.
	AllowEmpty bool

	// NewRunID generates run IDs (default: random UUID).
	NewRunID func() string
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{FillValue: defaults.DefaultFillValue}
}

// Pipeline turns snapshots into tables.
type Pipeline struct {
	agg zonal.Aggregator
	cfg Config
}

// New creates a pipeline over agg.
func New(agg zonal.Aggregator, cfg Config) *Pipeline {
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.NewString
	}
	return &Pipeline{agg: agg, cfg: cfg}
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string

	// Tables holds one table per requested statistic.
	Tables map[string]*series.Table

	// Filled counts, per statistic, the cells written with the fill value.
	Filled map[string]int

	Snapshots int
	Duration  time.Duration
}

// RunError aborts a run. Index and Path name the offending snapshot; Index
// is -1 when the failure is not tied to a snapshot.
type RunError struct {
	Index int
	Path  string
	Err   error
}

func (e *RunError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("pipeline run failed: %v", e.Err)
	}
	return fmt.Sprintf("pipeline run failed at snapshot %d (%s): %v", e.Index, e.Path, e.Err)
}

// Unwrap exposes both errors.ErrPipeline and the cause.
func (e *RunError) Unwrap() []error {
	return []error{errors.ErrPipeline, e.Err}
}

// Run builds one table per statistic with a row per snapshot (in the
// given order) and a column per catalog zone (in catalog order).
func (p *Pipeline) Run(ctx context.Context, stats []string, snaps []raster.Snapshot, cat *zones.Catalog) (*Result, error) {
	start := time.Now()

	if len(stats) == 0 {
		return nil, fmt.Errorf("no statistics requested: %w", errors.ErrConfiguration)
	}
	stats = dedupe(stats)

	if len(snaps) == 0 && !p.cfg.AllowEmpty {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfiguration, errors.ErrNoSnapshots)
	}
	if cat == nil {
		cat = zones.New()
	}

	runID := p.cfg.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.WithContext(ctx).With("component", "pipeline")

	dates := make([]time.Time, len(snaps))
	seen := make(map[time.Time]int, len(snaps))
	for i, s := range snaps {
		if j, ok := seen[s.Date]; ok {
			return nil, &RunError{Index: i, Path: s.Path, Err: fmt.Errorf(
				"same date as snapshot %d: %w", j, errors.ErrDuplicateTimestamp)}
		}
		seen[s.Date] = i
		dates[i] = s.Date
	}

	ids := cat.IDs()
	zs := cat.Zones()

	res := &Result{
		RunID:     runID,
		Tables:    make(map[string]*series.Table, len(stats)),
		Filled:    make(map[string]int, len(stats)),
		Snapshots: len(snaps),
	}
	for _, stat := range stats {
		t, err := series.NewTable(stat, dates, ids)
		if err != nil {
			return nil, &RunError{Index: -1, Err: err}
		}
		res.Tables[stat] = t
		res.Filled[stat] = 0
	}

	log.Info("run started", "snapshots", len(snaps), "zones", len(ids), "statistics", stats)

	row := make([]float64, len(ids))
	for i, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return nil, &RunError{Index: i, Path: snap.Path, Err: err}
		}

		out, err := p.agg.Aggregate(ctx, zs, snap.Path, stats)
		if err != nil {
			if ctx.Err() == nil {
				err = fmt.Errorf("%w: %w", errors.ErrAggregation, err)
			}
			return nil, &RunError{Index: i, Path: snap.Path, Err: err}
		}

		for _, stat := range stats {
			if vals, ok := out[stat]; ok && len(vals) != len(ids) {
				return nil, &RunError{Index: i, Path: snap.Path, Err: fmt.Errorf(
					"%s: %d values for %d zones: %w", stat, len(vals), len(ids), errors.ErrShapeMismatch)}
			}

			filled := 0
			for j := range ids {
				v := out.Get(stat, j)
				if v.Valid {
					row[j] = v.Float
				} else {
					row[j] = p.cfg.FillValue
					filled++
				}
			}
			if err := res.Tables[stat].SetRow(i, row); err != nil {
				return nil, &RunError{Index: i, Path: snap.Path, Err: err}
			}
			if filled > 0 {
				res.Filled[stat] += filled
				logging.WithContext(logging.ContextWithStatistic(ctx, stat)).
					Warn("missing zone values filled", "component", "pipeline",
						"snapshot", snap.Name(), "zones", filled, "fill_value", p.cfg.FillValue)
			}
		}

		log.Debug("snapshot aggregated", "index", i, "snapshot", snap.Name())
	}

	res.Duration = time.Since(start)
	log.Info("run completed", "snapshots", len(snaps), "duration", res.Duration)
	return res, nil
}

func dedupe(stats []string) []string {
	seen := make(map[string]struct{}, len(stats))
	out := make([]string, 0, len(stats))
	for _, s := range stats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

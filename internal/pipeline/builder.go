package pipeline

import (
	"context"
	"fmt"

	"github.com/xtxerr/zonalseries/internal/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/raster"
	"github.com/xtxerr/zonalseries/internal/series"
	"github.com/xtxerr/zonalseries/internal/zonal"
	"github.com/xtxerr/zonalseries/internal/zones"
)

var log = logging.Component("builder")

// Builder wires the configured directory layout to a pipeline run and
// persists the resulting tables.
type Builder struct {
	layout   config.Layout
	store    *series.Store
	agg      zonal.Aggregator
	pipeline Config
}

// NewBuilder creates a builder from cfg that saves into store. A nil agg
// selects the grid aggregator.
func NewBuilder(cfg *config.Config, store *series.Store, agg zonal.Aggregator) *Builder {
	if agg == nil {
		agg = zonal.NewGridAggregator(zonal.GridConfig{SketchAccuracy: cfg.Pipeline.SketchAccuracy})
	}

	pc := DefaultConfig()
	pc.FillValue = cfg.Pipeline.FillValue

	return &Builder{
		layout:   cfg.Layout,
		store:    store,
		agg:      agg,
		pipeline: pc,
	}
}

// Store returns the store tables are saved into.
func (b *Builder) Store() *series.Store { return b.store }

// Snapshots discovers the raster snapshots of the configured layout.
func (b *Builder) Snapshots() ([]raster.Snapshot, error) {
	return raster.Discover(b.layout.RasterPath(), b.layout.Prefix, b.layout.Extension)
}

// Catalog loads the configured zone definitions.
func (b *Builder) Catalog() (*zones.Catalog, error) {
	return zones.LoadGeoJSON(b.layout.VectorPath(), b.layout.ZoneNameProperty)
}

// Construct builds and persists a table for each statistic. Nothing is
// saved unless the whole run succeeds.
func (b *Builder) Construct(ctx context.Context, stats []string) (*Result, error) {
	snaps, err := b.Snapshots()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		log.Warn("no snapshots found", "dir", b.layout.RasterPath(),
			"prefix", b.layout.Prefix, "extension", b.layout.Extension)
	}

	cat, err := b.Catalog()
	if err != nil {
		return nil, err
	}

	res, err := New(b.agg, b.pipeline).Run(ctx, stats, snaps, cat)
	if err != nil {
		return nil, err
	}

	for _, stat := range dedupe(stats) {
		if err := b.store.Save(stat, res.Tables[stat]); err != nil {
			return nil, fmt.Errorf("save %s: %w", stat, err)
		}
		log.Info("series built", "run_id", res.RunID, "statistic", stat,
			"path", b.store.Path(stat), "filled", res.Filled[stat])
	}

	return res, nil
}

// Status describes the persisted table of one statistic.
type Status struct {
	Statistic string
	Exists    bool
	Path      string

	// Rows is the persisted row count, 0 if absent.
	Rows int
	// Snapshots is the number of snapshots currently on disk.
	Snapshots int

	// Stale is true when the persisted dates no longer match the snapshots
	// on disk. Staleness is informational and never triggers a rebuild.
	Stale bool
}

// Status reports the state of each statistic's table.
func (b *Builder) Status(stats []string) ([]Status, error) {
	snaps, err := b.Snapshots()
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(stats))
	for _, stat := range stats {
		st := Status{
			Statistic: stat,
			Path:      b.store.Path(stat),
			Snapshots: len(snaps),
		}

		t, err := b.store.Load(stat)
		switch {
		case errors.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			st.Exists = true
			st.Rows = t.NumRows()
			st.Stale = !sameDates(t, snaps)
		}
		out = append(out, st)
	}
	return out, nil
}

func sameDates(t *series.Table, snaps []raster.Snapshot) bool {
	dates := t.Dates()
	if len(dates) != len(snaps) {
		return false
	}
	for i, d := range dates {
		if !d.Equal(snaps[i].Date) {
			return false
		}
	}
	return true
}

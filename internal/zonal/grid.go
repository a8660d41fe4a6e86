package zonal

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	defaults "github.com/xtxerr/zonalseries/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/raster"
	"github.com/xtxerr/zonalseries/internal/zones"
)

var log = logging.Component("zonal")

// GridReader loads a raster file into memory.
type GridReader func(path string) (*raster.Grid, error)

// GridAggregator computes zone statistics over in-memory grids. A cell
// belongs to a zone when its centre lies inside the zone geometry; nodata
// cells are skipped. Rasters and zones must share a coordinate system.
type GridAggregator struct {
	readers  map[string]GridReader
	accuracy float64
}

// GridConfig configures a GridAggregator. Zero values select defaults.
type GridConfig struct {
	// SketchAccuracy is the relative accuracy of median and percentile
	// statistics.
	SketchAccuracy float64

	// Readers adds or replaces grid readers by file extension (".asc").
	Readers map[string]GridReader
}

// NewGridAggregator returns an aggregator that reads ESRI ASCII grids.
func NewGridAggregator(cfg GridConfig) *GridAggregator {
	g := &GridAggregator{
		readers: map[string]GridReader{
			".asc": raster.ReadASCIIGridFile,
		},
		accuracy: defaults.DefaultSketchAccuracy,
	}
	if cfg.SketchAccuracy > 0 && cfg.SketchAccuracy < 1 {
		g.accuracy = cfg.SketchAccuracy
	}
	for ext, r := range cfg.Readers {
		g.readers[strings.ToLower(ext)] = r
	}
	return g
}

// Aggregate implements Aggregator.
func (g *GridAggregator) Aggregate(ctx context.Context, zs []zones.Zone, rasterPath string, names []string) (Result, error) {
	stats, err := ParseStatistics(names)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(rasterPath))
	read, ok := g.readers[ext]
	if !ok {
		return nil, fmt.Errorf("no grid reader for %q: %w", ext, errors.ErrUnsupportedRaster)
	}

	grid, err := read(rasterPath)
	if err != nil {
		return nil, err
	}

	return g.AggregateGrid(ctx, zs, grid, stats)
}

// AggregateGrid computes stats for every zone over an already loaded grid.
func (g *GridAggregator) AggregateGrid(ctx context.Context, zs []zones.Zone, grid *raster.Grid, stats []Statistic) (Result, error) {
	withSketch := false
	for _, s := range stats {
		if s.needsSketch() {
			withSketch = true
			break
		}
	}

	res := make(Result, len(stats))
	for _, s := range stats {
		res[s.Name] = make([]Value, len(zs))
	}

	for zi, z := range zs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		acc, err := newAccumulator(withSketch, g.accuracy)
		if err != nil {
			return nil, fmt.Errorf("create sketch: %w", err)
		}

		g.collect(grid, z.Geometry, acc)

		for _, s := range stats {
			res[s.Name][zi] = acc.value(s)
		}

		log.Debug("zone aggregated", "zone", z.ID, "pixels", acc.count)
	}

	return res, nil
}

// collect feeds every data cell whose centre is inside geom into acc.
func (g *GridAggregator) collect(grid *raster.Grid, geom zones.Geometry, acc *accumulator) {
	minX, minY, maxX, maxY, ok := geom.Bounds()
	if !ok {
		return
	}

	gridMinX, gridMinY, gridMaxX, gridMaxY := grid.Bounds()
	if maxX < gridMinX || minX > gridMaxX || maxY < gridMinY || minY > gridMaxY {
		return
	}

	// restrict the scan to the rows and columns overlapping the bounds
	c0 := clamp(int(math.Floor((minX-grid.XLL)/grid.CellSize)), 0, grid.NCols-1)
	c1 := clamp(int(math.Ceil((maxX-grid.XLL)/grid.CellSize)), 0, grid.NCols-1)
	r0 := clamp(int(math.Floor((gridMaxY-maxY)/grid.CellSize)), 0, grid.NRows-1)
	r1 := clamp(int(math.Ceil((gridMaxY-minY)/grid.CellSize)), 0, grid.NRows-1)

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			v, ok := grid.At(r, c)
			if !ok {
				continue
			}
			x, y := grid.CellCenter(r, c)
			if geom.Contains(x, y) {
				acc.add(v)
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

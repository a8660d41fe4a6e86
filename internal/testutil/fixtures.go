package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/xtxerr/zonalseries/internal/config"
	"github.com/xtxerr/zonalseries/internal/zones"
)

// NoData is the nodata value written by WriteGrid.
const NoData = -9999

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

// WriteGrid writes an ESRI ASCII grid with its lower-left corner at the
// origin and unit cells. rows[0] is the northernmost row; NaN cells are
// written as nodata.
func WriteGrid(t testing.TB, path string, rows [][]float64) {
	t.Helper()

	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\nnrows %d\nxllcorner 0\nyllcorner 0\ncellsize 1\nnodata_value %d\n",
		len(rows[0]), len(rows), NoData)
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				b.WriteByte(' ')
			}
			if math.IsNaN(v) {
				b.WriteString(strconv.Itoa(NoData))
			} else {
				b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		b.WriteByte('\n')
	}
	WriteFile(t, path, []byte(b.String()))
}

// Box returns a rectangular zone.
func Box(id string, x0, y0, x1, y1 float64) zones.Zone {
	ring := zones.Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}
	return zones.Zone{ID: id, Geometry: zones.Geometry{Polygons: []zones.Polygon{{ring}}}}
}

// WriteZones writes zs as a GeoJSON FeatureCollection, naming each
// feature through nameProperty.
func WriteZones(t testing.TB, path, nameProperty string, zs ...zones.Zone) {
	t.Helper()

	features := make([]map[string]any, len(zs))
	for i, z := range zs {
		var polys [][][][2]float64
		for _, p := range z.Geometry.Polygons {
			var rings [][][2]float64
			for _, r := range p {
				ring := make([][2]float64, len(r))
				for k, pt := range r {
					ring[k] = [2]float64{pt.X, pt.Y}
				}
				rings = append(rings, ring)
			}
			polys = append(polys, rings)
		}
		features[i] = map[string]any{
			"type":       "Feature",
			"properties": map[string]any{nameProperty: z.ID},
			"geometry":   map[string]any{"type": "MultiPolygon", "coordinates": polys},
		}
	}

	data, err := json.Marshal(map[string]any{"type": "FeatureCollection", "features": features})
	if err != nil {
		t.Fatal(err)
	}
	WriteFile(t, path, data)
}

// Snapshot is one raster fixture keyed by its date.
type Snapshot struct {
	Date string
	Rows [][]float64
}

// WriteAssets creates a complete asset layout under a temporary
// directory and returns a default configuration pointing at it.
func WriteAssets(t testing.TB, prefix string, snaps []Snapshot, zs ...zones.Zone) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Layout.AssetsDir = t.TempDir()
	cfg.Layout.Prefix = prefix

	for _, s := range snaps {
		name := prefix + s.Date + cfg.Layout.Extension
		WriteGrid(t, filepath.Join(cfg.Layout.RasterPath(), name), s.Rows)
	}
	WriteZones(t, cfg.Layout.VectorPath(), cfg.Layout.ZoneNameProperty, zs...)
	return cfg
}

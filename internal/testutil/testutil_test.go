package testutil

import (
	"context"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xtxerr/zonalseries/internal/raster"
	"github.com/xtxerr/zonalseries/internal/zones"
)

func TestGoroutineTest(t *testing.T) {
	gt := NewGoroutineTest(t, 5*time.Second)

	var n atomic.Int32
	for i := 0; i < 5; i++ {
		gt.Go(func(ctx context.Context) error {
			n.Add(1)
			return ctx.Err()
		})
	}
	gt.Wait()

	if n.Load() != 5 {
		t.Errorf("ran %d goroutines, want 5", n.Load())
	}
}

func TestEventually(t *testing.T) {
	start := time.Now()
	err := Eventually(time.Second, 5*time.Millisecond, func() bool {
		return time.Since(start) > 20*time.Millisecond
	})
	if err != nil {
		t.Error(err)
	}
	if Eventually(20*time.Millisecond, 5*time.Millisecond, func() bool { return false }) == nil {
		t.Error("expected timeout")
	}
}

func TestWriteAssets(t *testing.T) {
	cfg := WriteAssets(t, "site_",
		[]Snapshot{{Date: "2023-01-01", Rows: [][]float64{{1, math.NaN()}}}},
		Box("A", 0, 0, 1, 1), Box("B", 1, 0, 2, 1))

	snaps, err := raster.Discover(cfg.Layout.RasterPath(), "site_", cfg.Layout.Extension)
	if err != nil || len(snaps) != 1 {
		t.Fatalf("Discover = %v, %v", snaps, err)
	}

	g, err := raster.ReadASCIIGridFile(snaps[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := g.At(0, 0); !ok || v != 1 {
		t.Errorf("cell (0,0) = %v, %v", v, ok)
	}
	if _, ok := g.At(0, 1); ok {
		t.Error("NaN cell should be nodata")
	}

	cat, err := zones.LoadGeoJSON(filepath.Clean(cfg.Layout.VectorPath()), cfg.Layout.ZoneNameProperty)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 2 || !cat.Zones()[1].Geometry.Contains(1.5, 0.5) {
		t.Errorf("catalog = %v", cat.IDs())
	}
}

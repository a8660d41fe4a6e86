package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xtxerr/zonalseries/internal/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/raster"
	"github.com/xtxerr/zonalseries/internal/series"
	"github.com/xtxerr/zonalseries/internal/testutil"
	"github.com/xtxerr/zonalseries/internal/zonal"
	"github.com/xtxerr/zonalseries/internal/zones"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func snapshots(prefix string, dates ...string) []raster.Snapshot {
	out := make([]raster.Snapshot, len(dates))
	for i, d := range dates {
		out[i] = raster.Snapshot{Path: "/rasters/" + prefix + d + ".asc", Date: day(d)}
	}
	return out
}

// fakeAggregator answers from a path -> statistic -> per-zone values table.
type fakeAggregator struct {
	results map[string]zonal.Result
	calls   []string
	err     error
}

func (f *fakeAggregator) Aggregate(_ context.Context, _ []zones.Zone, path string, _ []string) (zonal.Result, error) {
	f.calls = append(f.calls, filepath.Base(path))
	if f.err != nil {
		return nil, f.err
	}
	return f.results[filepath.Base(path)], nil
}

func siteScenario() (*fakeAggregator, []raster.Snapshot, *zones.Catalog) {
	agg := &fakeAggregator{results: map[string]zonal.Result{
		"site_2023-01-01.asc": {"mean": {zonal.Some(0.3), zonal.Some(0.5)}},
		"site_2023-02-01.asc": {"mean": {zonal.Some(0.4), zonal.Missing}},
	}}
	return agg, snapshots("site_", "2023-01-01", "2023-02-01"), zones.New(zones.Zone{ID: "A"}, zones.Zone{ID: "B"})
}

func TestRunSiteScenario(t *testing.T) {
	agg, snaps, cat := siteScenario()

	res, err := New(agg, Config{NewRunID: func() string { return "run-1" }}).
		Run(context.Background(), []string{"mean"}, snaps, cat)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID != "run-1" || res.Snapshots != 2 {
		t.Errorf("result = %+v", res)
	}

	tbl := res.Tables["mean"]
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Fatalf("shape = %dx%d", tbl.NumRows(), tbl.NumCols())
	}
	if !reflect.DeepEqual(tbl.Zones(), []string{"A", "B"}) {
		t.Errorf("zones = %v", tbl.Zones())
	}
	want := [][]float64{{0.3, 0.5}, {0.4, 0}}
	for i, row := range want {
		if got := tbl.Row(i); !reflect.DeepEqual(got, row) {
			t.Errorf("row %d = %v, want %v", i, got, row)
		}
	}
	if res.Filled["mean"] != 1 {
		t.Errorf("Filled = %d, want 1", res.Filled["mean"])
	}
	if !reflect.DeepEqual(agg.calls, []string{"site_2023-01-01.asc", "site_2023-02-01.asc"}) {
		t.Errorf("aggregator calls = %v", agg.calls)
	}
}

func TestRunFillWarningCarriesRunAndStatistic(t *testing.T) {
	var buf bytes.Buffer
	logging.InitWriter(&buf, slog.LevelInfo, true)
	t.Cleanup(func() { logging.Init(slog.LevelInfo, false) })

	agg, snaps, cat := siteScenario()
	if _, err := New(agg, Config{NewRunID: func() string { return "run-7" }}).
		Run(context.Background(), []string{"mean"}, snaps, cat); err != nil {
		t.Fatal(err)
	}

	var warned bool
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if !bytes.Contains(line, []byte("missing zone values filled")) {
			continue
		}
		warned = true
		for _, want := range []string{`"run_id":"run-7"`, `"statistic":"mean"`, `"snapshot":"site_2023-02-01.asc"`} {
			if !bytes.Contains(line, []byte(want)) {
				t.Errorf("warning %s lacks %s", line, want)
			}
		}
	}
	if !warned {
		t.Errorf("no fill warning logged:\n%s", buf.String())
	}
}

func TestRunFillValueNaN(t *testing.T) {
	agg, snaps, cat := siteScenario()

	res, err := New(agg, Config{FillValue: math.NaN()}).Run(context.Background(), []string{"mean"}, snaps, cat)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(res.Tables["mean"].At(1, 1)) {
		t.Errorf("missing cell = %v, want NaN", res.Tables["mean"].At(1, 1))
	}
}

func TestRunKeepsSnapshotOrder(t *testing.T) {
	agg := &fakeAggregator{results: map[string]zonal.Result{}}
	snaps := snapshots("s_", "2023-03-01", "2023-01-01")

	res, err := New(agg, DefaultConfig()).Run(context.Background(), []string{"mean", "std", "mean"}, snaps, zones.New(zones.Zone{ID: "A"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tables) != 2 {
		t.Errorf("tables = %d, want 2", len(res.Tables))
	}
	dates := res.Tables["std"].Dates()
	if !dates[0].Equal(day("2023-03-01")) || !dates[1].Equal(day("2023-01-01")) {
		t.Errorf("dates resorted: %v", dates)
	}
	// unreported statistics are filled everywhere
	if res.Filled["std"] != 2 {
		t.Errorf("Filled[std] = %d", res.Filled["std"])
	}
}

func TestRunNoSnapshots(t *testing.T) {
	cat := zones.New(zones.Zone{ID: "A"})

	_, err := New(&fakeAggregator{}, DefaultConfig()).Run(context.Background(), []string{"mean"}, nil, cat)
	if !errors.Is(err, errors.ErrConfiguration) || !errors.Is(err, errors.ErrNoSnapshots) {
		t.Errorf("expected configuration error, got %v", err)
	}

	res, err := New(&fakeAggregator{}, Config{AllowEmpty: true}).Run(context.Background(), []string{"mean"}, nil, cat)
	if err != nil {
		t.Fatalf("AllowEmpty: %v", err)
	}
	if tbl := res.Tables["mean"]; tbl.NumRows() != 0 || tbl.NumCols() != 1 {
		t.Errorf("shape = %dx%d, want 0x1", tbl.NumRows(), tbl.NumCols())
	}
}

func TestRunAggregatorFailure(t *testing.T) {
	agg, snaps, cat := siteScenario()
	agg.err = fmt.Errorf("corrupt raster")

	_, err := New(agg, DefaultConfig()).Run(context.Background(), []string{"mean"}, snaps, cat)

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %T %v", err, err)
	}
	if runErr.Index != 0 || runErr.Path != snaps[0].Path {
		t.Errorf("RunError = %+v", runErr)
	}
	if !errors.IsPipeline(err) || !errors.IsAggregation(err) {
		t.Errorf("error should be both pipeline and aggregation: %v", err)
	}
}

func TestRunDuplicateTimestamp(t *testing.T) {
	snaps := snapshots("s_", "2023-01-01", "2023-01-01")

	_, err := New(&fakeAggregator{}, DefaultConfig()).Run(context.Background(), []string{"mean"}, snaps, zones.New())
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Index != 1 {
		t.Fatalf("expected RunError at index 1, got %v", err)
	}
	if !errors.Is(err, errors.ErrDuplicateTimestamp) {
		t.Errorf("expected ErrDuplicateTimestamp, got %v", err)
	}
}

func TestRunLengthMismatch(t *testing.T) {
	agg := &fakeAggregator{results: map[string]zonal.Result{
		"s_2023-01-01.asc": {"mean": {zonal.Some(1)}},
	}}
	cat := zones.New(zones.Zone{ID: "A"}, zones.Zone{ID: "B"})

	_, err := New(agg, DefaultConfig()).Run(context.Background(), []string{"mean"}, snapshots("s_", "2023-01-01"), cat)
	if !errors.Is(err, errors.ErrShapeMismatch) || !errors.IsPipeline(err) {
		t.Errorf("expected shape mismatch pipeline error, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	agg, snaps, cat := siteScenario()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(agg, DefaultConfig()).Run(ctx, []string{"mean"}, snaps, cat)
	if !errors.Is(err, context.Canceled) || !errors.IsPipeline(err) {
		t.Errorf("expected cancelled pipeline error, got %v", err)
	}
	if len(agg.calls) != 0 {
		t.Errorf("aggregator called after cancel: %v", agg.calls)
	}
}

func TestRunNoStatistics(t *testing.T) {
	_, snaps, cat := siteScenario()
	_, err := New(&fakeAggregator{}, DefaultConfig()).Run(context.Background(), nil, snaps, cat)
	if !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

// =============================================================================
// Builder
// =============================================================================

func writeAssets(t *testing.T) *config.Config {
	t.Helper()
	return testutil.WriteAssets(t, "site_",
		[]testutil.Snapshot{
			{Date: "2023-01-01", Rows: [][]float64{{0.3, 0.5}}},
			{Date: "2023-02-01", Rows: [][]float64{{0.4, math.NaN()}}},
		},
		testutil.Box("A", 0, 0, 1, 1),
		testutil.Box("B", 1, 0, 2, 1),
	)
}

func TestBuilderConstruct(t *testing.T) {
	cfg := writeAssets(t)
	store := series.NewStore(cfg.Layout.SeriesPath(), series.CSVCodec{})
	b := NewBuilder(cfg, store, nil)

	res, err := b.Construct(context.Background(), []string{"mean"})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if res.Filled["mean"] != 1 {
		t.Errorf("Filled = %d, want 1", res.Filled["mean"])
	}

	tbl, err := store.Load("mean")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := [][]float64{{0.3, 0.5}, {0.4, 0}}
	for i, row := range want {
		if got := tbl.Row(i); !reflect.DeepEqual(got, row) {
			t.Errorf("row %d = %v, want %v", i, got, row)
		}
	}

	st, err := b.Status([]string{"mean", "std"})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st[0].Exists || st[0].Rows != 2 || st[0].Snapshots != 2 || st[0].Stale {
		t.Errorf("status[mean] = %+v", st[0])
	}
	if st[1].Exists || st[1].Rows != 0 {
		t.Errorf("status[std] = %+v", st[1])
	}
}

func TestBuilderStatusStale(t *testing.T) {
	cfg := writeAssets(t)
	store := series.NewStore(cfg.Layout.SeriesPath(), series.CSVCodec{})
	b := NewBuilder(cfg, store, nil)

	if _, err := b.Construct(context.Background(), []string{"mean"}); err != nil {
		t.Fatal(err)
	}

	testutil.WriteGrid(t, filepath.Join(cfg.Layout.RasterPath(), "site_2023-03-01.asc"), [][]float64{{1, 1}})

	st, err := b.Status([]string{"mean"})
	if err != nil {
		t.Fatal(err)
	}
	if !st[0].Stale || st[0].Snapshots != 3 || st[0].Rows != 2 {
		t.Errorf("status = %+v, want stale", st[0])
	}
}

func TestBuilderFailureSavesNothing(t *testing.T) {
	cfg := writeAssets(t)
	store := series.NewStore(cfg.Layout.SeriesPath(), series.CSVCodec{})
	agg := &fakeAggregator{err: fmt.Errorf("boom")}

	_, err := NewBuilder(cfg, store, agg).Construct(context.Background(), []string{"mean"})
	if !errors.IsPipeline(err) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
	if store.Exists("mean") {
		t.Error("failed run must not persist a table")
	}
}

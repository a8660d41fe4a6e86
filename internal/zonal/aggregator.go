// Package zonal defines the zonal statistics capability the pipeline
// consumes, and a built-in implementation over ASCII grids.
package zonal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/zones"
)

// Value is one zone statistic. Valid is false when the statistic could not
// be computed for the zone (for example, no pixels fell inside it).
type Value struct {
	Float float64
	Valid bool
}

// Some returns a valid Value.
func Some(v float64) Value {
	return Value{Float: v, Valid: true}
}

// Missing is the explicit "no value" marker.
var Missing = Value{}

// Result holds the statistics of one raster: for every statistic name, one
// Value per zone in the order the zones were passed in.
type Result map[string][]Value

// Get returns the value of stat for the zone at position i. Statistics the
// aggregator did not report are Missing.
func (r Result) Get(stat string, i int) Value {
	vals, ok := r[stat]
	if !ok || i < 0 || i >= len(vals) {
		return Missing
	}
	return vals[i]
}

// Aggregator computes zone statistics for one raster. Implementations are
// called once per snapshot with every requested statistic.
type Aggregator interface {
	Aggregate(ctx context.Context, zs []zones.Zone, rasterPath string, stats []string) (Result, error)
}

// AggregatorFunc adapts a function to the Aggregator interface.
type AggregatorFunc func(ctx context.Context, zs []zones.Zone, rasterPath string, stats []string) (Result, error)

// Aggregate calls f.
func (f AggregatorFunc) Aggregate(ctx context.Context, zs []zones.Zone, rasterPath string, stats []string) (Result, error) {
	return f(ctx, zs, rasterPath, stats)
}

// Kind identifies a supported statistic.
type Kind int

const (
	KindCount Kind = iota
	KindSum
	KindMean
	KindMin
	KindMax
	KindStd
	KindRange
	KindMedian
	KindPercentile
)

// Statistic is a parsed statistic name.
type Statistic struct {
	Name string
	Kind Kind

	// Quantile in (0, 1], only for KindMedian and KindPercentile.
	Quantile float64
}

var kindsByName = map[string]Kind{
	"count":  KindCount,
	"sum":    KindSum,
	"mean":   KindMean,
	"min":    KindMin,
	"max":    KindMax,
	"std":    KindStd,
	"range":  KindRange,
	"median": KindMedian,
}

// ParseStatistic parses a statistic name: count, sum, mean, min, max, std,
// range, median or percentile_<q> with 0 < q <= 100.
func ParseStatistic(name string) (Statistic, error) {
	if k, ok := kindsByName[name]; ok {
		s := Statistic{Name: name, Kind: k}
		if k == KindMedian {
			s.Quantile = 0.5
		}
		return s, nil
	}

	if rest, ok := strings.CutPrefix(name, "percentile_"); ok {
		q, err := strconv.ParseFloat(rest, 64)
		if err == nil && q > 0 && q <= 100 && !math.IsNaN(q) {
			return Statistic{Name: name, Kind: KindPercentile, Quantile: q / 100}, nil
		}
	}

	return Statistic{}, fmt.Errorf("%q: %w", name, errors.ErrUnknownStatistic)
}

// ParseStatistics parses every name, failing on the first unknown one.
func ParseStatistics(names []string) ([]Statistic, error) {
	out := make([]Statistic, len(names))
	for i, n := range names {
		s, err := ParseStatistic(n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (s Statistic) needsSketch() bool {
	return s.Kind == KindMedian || s.Kind == KindPercentile
}

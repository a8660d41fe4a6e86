package zonal

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

// accumulator maintains running statistics for the pixels of one zone.
// Percentiles come from a DDSketch and carry its relative accuracy.
type accumulator struct {
	count int64
	mean  float64
	m2    float64 // sum of squared deviations (Welford)
	sum   float64
	min   float64
	max   float64

	// nil if no median/percentile was requested
	sketch    *ddsketch.DDSketch
	sketchErr error
}

func newAccumulator(withSketch bool, accuracy float64) (*accumulator, error) {
	a := &accumulator{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}

	if withSketch {
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err != nil {
			return nil, err
		}
		a.sketch = sketch
	}

	return a, nil
}

// add folds one pixel in. Non-finite values are not data and are skipped.
func (a *accumulator) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}

	a.count++
	a.sum += v

	delta := v - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (v - a.mean)

	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}

	if a.sketch != nil && a.sketchErr == nil {
		a.sketchErr = a.sketch.Add(v)
	}
}

// value returns s for the accumulated pixels. Everything except count is
// missing for an empty zone.
func (a *accumulator) value(s Statistic) Value {
	if s.Kind == KindCount {
		return Some(float64(a.count))
	}
	if a.count == 0 {
		return Missing
	}

	switch s.Kind {
	case KindSum:
		return Some(a.sum)
	case KindMean:
		return Some(a.mean)
	case KindMin:
		return Some(a.min)
	case KindMax:
		return Some(a.max)
	case KindStd:
		// population standard deviation over the zone's pixels
		return Some(math.Sqrt(a.m2 / float64(a.count)))
	case KindRange:
		return Some(a.max - a.min)
	case KindMedian, KindPercentile:
		if a.sketch == nil || a.sketchErr != nil {
			return Missing
		}
		q, err := a.sketch.GetValueAtQuantile(s.Quantile)
		if err != nil {
			return Missing
		}
		return Some(q)
	}
	return Missing
}

package query

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// columnStats returns mean, sample standard deviation and interquartile
// range of vals. NaN cells are ignored; an empty column yields NaN for all
// three and a single value has an undefined (NaN) standard deviation.
func columnStats(vals []float64) (mean, std, iqr float64) {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}

	switch len(clean) {
	case 0:
		return math.NaN(), math.NaN(), math.NaN()
	case 1:
		return clean[0], math.NaN(), 0
	}

	mean = stat.Mean(clean, nil)
	std = stat.StdDev(clean, nil)

	sort.Float64s(clean)
	iqr = quantile(0.75, clean) - quantile(0.25, clean)
	return mean, std, iqr
}

// quantile returns the q-th quantile of sorted x by linear interpolation
// between the closest ranks (Hyndman-Fan type 7). gonum's stat.Quantile
// only offers the empirical and type 4 estimators.
func quantile(q float64, x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	h := q * float64(len(x)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(x) {
		return x[len(x)-1]
	}
	return x[i] + (h-lo)*(x[i+1]-x[i])
}

// Package series holds per-statistic time-series tables and their
// persisted forms.
//
// A Table maps (snapshot date, zone) to one scalar. Rows follow snapshot
// order and columns follow zone catalog order; neither is ever resorted.
package series

import (
	"fmt"
	"math"
	"time"

	"github.com/xtxerr/zonalseries/internal/errors"
)

// Table is the value of one statistic for every (date, zone) pair.
//
// Tables are filled row by row during construction and treated as
// read-only afterwards.
type Table struct {
	statistic string
	dates     []time.Time
	zones     []string
	values    []float64 // row-major, len(dates)*len(zones)
}

// NewTable returns a zero-filled table sized len(dates) x len(zones).
// Duplicate dates or zones are rejected.
func NewTable(statistic string, dates []time.Time, zones []string) (*Table, error) {
	seenDates := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		d = d.UTC()
		if j, ok := seenDates[d]; ok {
			return nil, fmt.Errorf("rows %d and %d share date %s: %w",
				j, i, d.Format(DateLayout), errors.ErrDuplicateTimestamp)
		}
		seenDates[d] = i
	}

	seenZones := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		if _, ok := seenZones[z]; ok {
			return nil, fmt.Errorf("zone %q appears twice: %w", z, errors.ErrShapeMismatch)
		}
		seenZones[z] = struct{}{}
	}

	t := &Table{
		statistic: statistic,
		dates:     make([]time.Time, len(dates)),
		zones:     append([]string(nil), zones...),
		values:    make([]float64, len(dates)*len(zones)),
	}
	for i, d := range dates {
		t.dates[i] = d.UTC()
	}
	return t, nil
}

// DateLayout is the persisted date format.
const DateLayout = "2006-01-02"

// Statistic returns the statistic the table holds.
func (t *Table) Statistic() string { return t.statistic }

// NumRows returns the number of snapshots.
func (t *Table) NumRows() int { return len(t.dates) }

// NumCols returns the number of zones.
func (t *Table) NumCols() int { return len(t.zones) }

// Dates returns a copy of the row dates.
func (t *Table) Dates() []time.Time {
	return append([]time.Time(nil), t.dates...)
}

// Zones returns a copy of the column zone identifiers.
func (t *Table) Zones() []string {
	return append([]string(nil), t.zones...)
}

// At returns the value at (row, col). It panics on out-of-range indices
// like a slice access would.
func (t *Table) At(row, col int) float64 {
	if col < 0 || col >= len(t.zones) {
		panic(fmt.Sprintf("series: column %d out of range [0,%d)", col, len(t.zones)))
	}
	return t.values[row*len(t.zones)+col]
}

// SetRow overwrites row i with vals, one per zone.
func (t *Table) SetRow(i int, vals []float64) error {
	if i < 0 || i >= len(t.dates) {
		return fmt.Errorf("row %d of %d: %w", i, len(t.dates), errors.ErrInvalidIndex)
	}
	if len(vals) != len(t.zones) {
		return fmt.Errorf("row has %d values for %d zones: %w", len(vals), len(t.zones), errors.ErrShapeMismatch)
	}
	copy(t.values[i*len(t.zones):], vals)
	return nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []float64 {
	n := len(t.zones)
	return append([]float64(nil), t.values[i*n:(i+1)*n]...)
}

// Column returns a copy of column j in row order.
func (t *Table) Column(j int) []float64 {
	out := make([]float64, len(t.dates))
	for i := range t.dates {
		out[i] = t.At(i, j)
	}
	return out
}

// Select returns a new table with the given rows in the given order.
// Out-of-range and repeated indices are rejected since a repeated row would
// duplicate a date.
func (t *Table) Select(indices []int) (*Table, error) {
	seen := make(map[int]struct{}, len(indices))
	dates := make([]time.Time, len(indices))
	for k, i := range indices {
		if i < 0 || i >= len(t.dates) {
			return nil, fmt.Errorf("index %d out of range [0,%d): %w", i, len(t.dates), errors.ErrInvalidIndex)
		}
		if _, ok := seen[i]; ok {
			return nil, fmt.Errorf("index %d selected twice: %w", i, errors.ErrInvalidIndex)
		}
		seen[i] = struct{}{}
		dates[k] = t.dates[i]
	}

	out, err := NewTable(t.statistic, dates, t.zones)
	if err != nil {
		return nil, err
	}
	for k, i := range indices {
		copy(out.values[k*len(t.zones):], t.values[i*len(t.zones):(i+1)*len(t.zones)])
	}
	return out, nil
}

// Equal reports whether both tables have the same shape, labels and values.
// NaN cells compare equal to each other.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.statistic != o.statistic || len(t.dates) != len(o.dates) || len(t.zones) != len(o.zones) {
		return false
	}
	for i := range t.dates {
		if !t.dates[i].Equal(o.dates[i]) {
			return false
		}
	}
	for j := range t.zones {
		if t.zones[j] != o.zones[j] {
			return false
		}
	}
	for k, v := range t.values {
		w := o.values[k]
		if v != w && !(math.IsNaN(v) && math.IsNaN(w)) {
			return false
		}
	}
	return true
}

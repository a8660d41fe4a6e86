// Package query answers questions about persisted statistic tables:
// per-zone summaries, the available dates and row selections. It also
// resolves request names against the allow-list and exposes the tables to
// ad-hoc SQL.
package query

import (
	"fmt"
	"time"

	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/series"
)

var log = logging.Component("query")

// ZoneSummary summarizes one zone column over time.
type ZoneSummary struct {
	Zone string  `json:"zone"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	IQR  float64 `json:"iqr"`
}

// DateEntry is one table row position. Index is -1 for the empty marker
// returned when no table is available.
type DateEntry struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
}

// IsEmpty reports whether e is the empty marker.
func (e DateEntry) IsEmpty() bool {
	return e.Index < 0
}

func (e DateEntry) String() string {
	if e.IsEmpty() {
		return "()"
	}
	return fmt.Sprintf("%d %s", e.Index, e.Date.Format(series.DateLayout))
}

// Engine is a read-only view over one statistic's table.
//
// When the table has not been built the engine is degraded: Summary is
// empty, Dates holds only the empty marker and Select returns nil.
type Engine struct {
	statistic string
	table     *series.Table
}

// NewEngine loads the table for statistic from store. A missing table
// yields a degraded engine, not an error.
func NewEngine(store *series.Store, statistic string) (*Engine, error) {
	e := &Engine{statistic: statistic}

	t, err := store.Load(statistic)
	switch {
	case errors.IsNotFound(err):
		log.Warn("series not built, query engine degraded", "statistic", statistic)
		return e, nil
	case err != nil:
		return nil, err
	}

	e.table = t
	return e, nil
}

// NewEngineFromTable wraps an already loaded table.
func NewEngineFromTable(t *series.Table) *Engine {
	if t == nil {
		return &Engine{}
	}
	return &Engine{statistic: t.Statistic(), table: t}
}

// Statistic returns the statistic the engine serves.
func (e *Engine) Statistic() string { return e.statistic }

// Available reports whether a table was loaded.
func (e *Engine) Available() bool { return e.table != nil }

// Table returns the loaded table, nil when degraded.
func (e *Engine) Table() *series.Table { return e.table }

// Summary returns mean, sample standard deviation and IQR per zone.
func (e *Engine) Summary() map[string]ZoneSummary {
	out := make(map[string]ZoneSummary)
	for _, s := range e.SummaryOrdered() {
		out[s.Zone] = s
	}
	return out
}

// SummaryOrdered is Summary in column order.
func (e *Engine) SummaryOrdered() []ZoneSummary {
	if e.table == nil {
		return []ZoneSummary{}
	}

	zones := e.table.Zones()
	out := make([]ZoneSummary, len(zones))
	for j, z := range zones {
		mean, std, iqr := columnStats(e.table.Column(j))
		out[j] = ZoneSummary{Zone: z, Mean: mean, Std: std, IQR: iqr}
	}
	return out
}

// Dates returns the row positions and their dates in row order.
func (e *Engine) Dates() []DateEntry {
	if e.table == nil {
		return []DateEntry{{Index: -1}}
	}

	dates := e.table.Dates()
	out := make([]DateEntry, len(dates))
	for i, d := range dates {
		out[i] = DateEntry{Index: i, Date: d}
	}
	return out
}

// Select returns the rows at indices in the requested order.
func (e *Engine) Select(indices []int) (*series.Table, error) {
	if e.table == nil {
		return nil, nil
	}
	return e.table.Select(indices)
}

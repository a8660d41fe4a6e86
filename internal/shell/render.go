package shell

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/xtxerr/zonalseries/internal/pipeline"
	"github.com/xtxerr/zonalseries/internal/query"
	"github.com/xtxerr/zonalseries/internal/series"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// RenderSummary writes one line per zone.
func RenderSummary(w io.Writer, rows []query.ZoneSummary) {
	t := newTable(w, "zone", "mean", "std", "iqr")
	for _, r := range rows {
		t.Append([]string{r.Zone, formatFloat(r.Mean), formatFloat(r.Std), formatFloat(r.IQR)})
	}
	t.Render()
}

// RenderDates writes the row positions of a table.
func RenderDates(w io.Writer, dates []query.DateEntry) {
	if len(dates) == 1 && dates[0].IsEmpty() {
		fmt.Fprintln(w, dates[0])
		return
	}
	t := newTable(w, "index", "date")
	for _, d := range dates {
		t.Append([]string{strconv.Itoa(d.Index), d.Date.Format(series.DateLayout)})
	}
	t.Render()
}

// RenderTable writes a statistic table, one line per date.
func RenderTable(w io.Writer, tbl *series.Table) {
	if tbl == nil {
		fmt.Fprintln(w, "(no table)")
		return
	}
	t := newTable(w, append([]string{"date"}, tbl.Zones()...)...)
	for i, d := range tbl.Dates() {
		row := []string{d.Format(series.DateLayout)}
		for _, v := range tbl.Row(i) {
			row = append(row, formatFloat(v))
		}
		t.Append(row)
	}
	t.Render()
}

// RenderSQL writes the rows of an ad-hoc query in column order.
func RenderSQL(w io.Writer, res *query.SQLResult) {
	t := newTable(w, res.Columns...)
	for _, r := range res.Rows {
		row := make([]string, len(res.Columns))
		for i, c := range res.Columns {
			row[i] = fmt.Sprint(r[c])
		}
		t.Append(row)
	}
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
}

// RenderStatus writes the state of persisted tables.
func RenderStatus(w io.Writer, status []pipeline.Status) {
	t := newTable(w, "statistic", "exists", "rows", "snapshots", "stale", "path")
	for _, s := range status {
		t.Append([]string{
			s.Statistic,
			strconv.FormatBool(s.Exists),
			strconv.Itoa(s.Rows),
			strconv.Itoa(s.Snapshots),
			strconv.FormatBool(s.Stale),
			s.Path,
		})
	}
	t.Render()
}

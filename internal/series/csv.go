package series

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"
)

// CSVCodec stores a table as comma separated text:
//
//	date,<zone>,<zone>...
//	2023-01-01,0.3,0.5
//
// Missing (NaN) cells are written empty. Headers with an empty first cell
// and dates carrying a midnight time, as pandas writes them, are accepted
// on read.
type CSVCodec struct{}

// Ext implements Codec.
func (CSVCodec) Ext() string { return ".csv" }

// Encode implements Codec.
func (CSVCodec) Encode(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, t.NumCols()+1)
	header = append(header, "date")
	header = append(header, t.zones...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, t.NumCols()+1)
	for i, d := range t.dates {
		record[0] = d.Format(DateLayout)
		for j := range t.zones {
			v := t.At(i, j)
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

var csvDateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseCSVDate(s string) (time.Time, bool) {
	for _, layout := range csvDateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Decode implements Codec.
func (CSVCodec) Decode(data []byte, statistic string) (*Table, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, corrupt("read csv: %v", err)
	}
	if len(records) == 0 {
		return nil, corrupt("csv has no header")
	}

	header := records[0]
	if len(header) == 0 || (header[0] != "date" && header[0] != "") {
		return nil, corrupt("csv header must start with date, got %q", header)
	}
	zones := header[1:]

	rows := records[1:]
	dates := make([]time.Time, len(rows))
	for i, rec := range rows {
		d, ok := parseCSVDate(rec[0])
		if !ok {
			return nil, corrupt("row %d: bad date %q", i+1, rec[0])
		}
		dates[i] = d
	}

	t, err := NewTable(statistic, dates, zones)
	if err != nil {
		return nil, corrupt("%v", err)
	}

	vals := make([]float64, len(zones))
	for i, rec := range rows {
		for j, cell := range rec[1:] {
			if cell == "" {
				vals[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, corrupt("row %d column %q: %v", i+1, zones[j], err)
			}
			vals[j] = v
		}
		if err := t.SetRow(i, vals); err != nil {
			return nil, corrupt("row %d: %v", i+1, err)
		}
	}

	return t, nil
}

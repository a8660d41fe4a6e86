package series

import (
	"bytes"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string. Unknown names
// fall back to zstd.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Metadata keys carrying the table labels. Labels are kept outside the
// rows so tables without zones still round-trip their dates.
const (
	metaZones     = "zonalseries.zones"
	metaDates     = "zonalseries.dates"
	metaStatistic = "zonalseries.statistic"
)

// CellRow is one table cell in Parquet format (long layout, one row per
// date and zone). The layout is what DuckDB's read_parquet sees.
type CellRow struct {
	Row       int32   `parquet:"row"`
	Date      string  `parquet:"date,zstd"`
	ZoneIndex int32   `parquet:"zone_index"`
	Zone      string  `parquet:"zone,zstd"`
	Value     float64 `parquet:"value"`
}

// ParquetCodec stores a table as a Parquet file of CellRows.
type ParquetCodec struct {
	compression CompressionType
}

// NewParquetCodec creates a Parquet codec with the given compression.
func NewParquetCodec(ct CompressionType) ParquetCodec {
	return ParquetCodec{compression: ct}
}

// Ext implements Codec.
func (ParquetCodec) Ext() string { return ".parquet" }

// Encode implements Codec.
func (c ParquetCodec) Encode(w io.Writer, t *Table) error {
	dates := make([]string, len(t.dates))
	for i, d := range t.dates {
		dates[i] = d.Format(DateLayout)
	}

	zonesJSON, err := json.Marshal(t.zones)
	if err != nil {
		return err
	}
	datesJSON, err := json.Marshal(dates)
	if err != nil {
		return err
	}

	writer := parquet.NewGenericWriter[CellRow](w,
		parquet.Compression(getCompression(c.compression)),
		parquet.KeyValueMetadata(metaZones, string(zonesJSON)),
		parquet.KeyValueMetadata(metaDates, string(datesJSON)),
		parquet.KeyValueMetadata(metaStatistic, t.statistic),
	)

	rows := make([]CellRow, 0, len(t.values))
	for i := range t.dates {
		for j, z := range t.zones {
			rows = append(rows, CellRow{
				Row:       int32(i),
				Date:      dates[i],
				ZoneIndex: int32(j),
				Zone:      z,
				Value:     t.At(i, j),
			})
		}
	}

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// Decode implements Codec.
func (ParquetCodec) Decode(data []byte, statistic string) (*Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corrupt("open parquet: %v", err)
	}

	var zones, rawDates []string
	if err := lookupJSON(f, metaZones, &zones); err != nil {
		return nil, err
	}
	if err := lookupJSON(f, metaDates, &rawDates); err != nil {
		return nil, err
	}

	dates := make([]time.Time, len(rawDates))
	for i, s := range rawDates {
		d, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return nil, corrupt("date %q: %v", s, err)
		}
		dates[i] = d
	}

	t, err := NewTable(statistic, dates, zones)
	if err != nil {
		return nil, corrupt("%v", err)
	}

	reader := parquet.NewGenericReader[CellRow](bytes.NewReader(data))
	defer reader.Close()

	if reader.NumRows() != int64(len(t.values)) {
		return nil, corrupt("parquet has %d cells, want %d", reader.NumRows(), len(t.values))
	}

	rows := make([]CellRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, corrupt("read parquet rows: %v", err)
	}

	set := make([]bool, len(t.values))
	for _, r := range rows[:n] {
		i, j := int(r.Row), int(r.ZoneIndex)
		if i < 0 || i >= len(dates) || j < 0 || j >= len(zones) || zones[j] != r.Zone {
			return nil, corrupt("cell (%d, %d, %q) outside table", i, j, r.Zone)
		}
		k := i*len(zones) + j
		if set[k] {
			return nil, corrupt("cell (%d, %q) appears twice", i, r.Zone)
		}
		set[k] = true
		t.values[k] = r.Value
	}
	if n != len(t.values) {
		return nil, corrupt("read %d of %d cells", n, len(t.values))
	}

	return t, nil
}

func lookupJSON(f *parquet.File, key string, v any) error {
	raw, ok := f.Lookup(key)
	if !ok {
		return corrupt("parquet metadata %s missing", key)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return corrupt("parquet metadata %s: %v", key, err)
	}
	return nil
}

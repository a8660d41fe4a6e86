package series

import (
	"fmt"
	"io"
	"strings"

	"github.com/xtxerr/zonalseries/internal/errors"
)

// Codec converts tables to and from their persisted form.
type Codec interface {
	// Ext is the file extension including the dot.
	Ext() string

	Encode(w io.Writer, t *Table) error

	// Decode rebuilds a table holding statistic from data.
	Decode(data []byte, statistic string) (*Table, error)
}

// CodecFor returns the codec for a storage format: csv or parquet.
// compression only applies to parquet.
func CodecFor(format, compression string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return CSVCodec{}, nil
	case "parquet":
		return NewParquetCodec(ParseCompressionType(compression)), nil
	default:
		return nil, errors.NewInvalidValue("storage.format", format, "must be csv or parquet")
	}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errors.ErrCorruptSeries)
}

package series

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// MarshalColumns encodes t column-oriented: {zone: {date: value}}. Zones
// and dates keep table order; NaN cells become null.
func MarshalColumns(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for j, z := range t.zones {
		if j > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(z)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")

		for i, d := range t.dates {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(d.Format(DateLayout))
			buf.WriteString(`":`)

			v := t.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				buf.WriteString("null")
			} else {
				buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		buf.WriteByte('}')
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

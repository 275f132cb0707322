package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"db/column"
)

// Row is the ordered list of typed values for one record, one per field of
// the owning schema (§4.6).
type Row []column.Value

// SerializeRow walks the field list in declaration order and writes each
// value into dst[offset:offset+width]. Text shorter than its width is
// written raw; the tail stays zero (§4.6).
func SerializeRow(schema *column.Schema, row Row, dst []byte) error {
	if uint32(len(dst)) != schema.RowSize {
		return fmt.Errorf("SerializeRow: dst is %d bytes, expected %d", len(dst), schema.RowSize)
	}
	if len(row) != len(schema.Fields) {
		return fmt.Errorf("SerializeRow: row has %d values, expected %d", len(row), len(schema.Fields))
	}

	for i := range dst {
		dst[i] = 0
	}

	for i, f := range schema.Fields {
		v := row[i]
		base := f.Offset
		switch f.Type {
		case column.FieldInteger:
			if v.Kind != column.KindInteger {
				return fmt.Errorf("SerializeRow: field %q expects INTEGER, got %s", f.Name, v.Kind)
			}
			binary.LittleEndian.PutUint32(dst[base:base+4], uint32(v.I))

		case column.FieldFloat:
			if v.Kind != column.KindFloat {
				return fmt.Errorf("SerializeRow: field %q expects FLOAT, got %s", f.Name, v.Kind)
			}
			binary.LittleEndian.PutUint32(dst[base:base+4], math.Float32bits(v.F))

		case column.FieldBoolean:
			if v.Kind != column.KindBoolean {
				return fmt.Errorf("SerializeRow: field %q expects BOOLEAN, got %s", f.Name, v.Kind)
			}
			if v.B {
				dst[base] = 1
			}

		case column.FieldText:
			if v.Kind != column.KindString {
				return fmt.Errorf("SerializeRow: field %q expects TEXT, got %s", f.Name, v.Kind)
			}
			b := []byte(v.S)
			if uint32(len(b)) > f.Width {
				b = b[:f.Width]
			}
			copy(dst[base:base+uint32(len(b))], b)
		}
	}

	return nil
}

// DeserializeRow reconstructs a typed Row from a row-width slice. Text is
// trimmed at the first zero byte on conversion to a string (§4.6).
func DeserializeRow(schema *column.Schema, src []byte) (Row, error) {
	if uint32(len(src)) != schema.RowSize {
		return nil, fmt.Errorf("DeserializeRow: src is %d bytes, expected %d", len(src), schema.RowSize)
	}

	row := make(Row, len(schema.Fields))
	for i, f := range schema.Fields {
		base := f.Offset
		switch f.Type {
		case column.FieldInteger:
			row[i] = column.Int(int32(binary.LittleEndian.Uint32(src[base : base+4])))

		case column.FieldFloat:
			row[i] = column.Float(math.Float32frombits(binary.LittleEndian.Uint32(src[base : base+4])))

		case column.FieldBoolean:
			row[i] = column.Bool(src[base] != 0)

		case column.FieldText:
			raw := src[base : base+f.Width]
			n := bytes.IndexByte(raw, 0)
			if n < 0 {
				n = len(raw)
			}
			row[i] = column.Str(string(raw[:n]))
		}
	}

	return row, nil
}

// FieldValue looks up a row's value by field name.
func FieldValue(schema *column.Schema, row Row, name string) (column.Value, bool) {
	_, idx, ok := schema.FieldByName(name)
	if !ok {
		return column.Value{}, false
	}
	return row[idx], true
}

package table

import (
	"bytes"
	"encoding/binary"
	"math"

	"db/column"
)

// EncodeKey renders v into a fixed width-byte buffer using the same raw,
// little-endian layout as the row codec (§4.6); a value that does not match
// ft is the caller's bug, not something this function validates.
func EncodeKey(ft column.FieldType, width uint32, v column.Value) []byte {
	buf := make([]byte, width)
	switch ft {
	case column.FieldInteger:
		binary.LittleEndian.PutUint32(buf, uint32(v.I))
	case column.FieldFloat:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.F))
	case column.FieldBoolean:
		if v.B {
			buf[0] = 1
		}
	case column.FieldText:
		b := []byte(v.S)
		if uint32(len(b)) > width {
			b = b[:width]
		}
		copy(buf, b)
	}
	return buf
}

// DecodeKey reverses EncodeKey. TEXT keys are returned un-trimmed: the
// design note on text key ordering (§9) keeps comparison over the full
// on-disk width, including trailing zero padding.
func DecodeKey(ft column.FieldType, buf []byte) column.Value {
	switch ft {
	case column.FieldInteger:
		return column.Int(int32(binary.LittleEndian.Uint32(buf)))
	case column.FieldFloat:
		return column.Float(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case column.FieldBoolean:
		return column.Bool(buf[0] != 0)
	case column.FieldText:
		return column.Str(string(buf))
	default:
		panic("DecodeKey: unknown field type")
	}
}

// CompareKeys orders two encoded keys per §4.2.3: integer/float/bool by
// natural value order, text by raw byte order over the on-disk width.
func CompareKeys(ft column.FieldType, a, b []byte) int {
	if ft == column.FieldText {
		return bytes.Compare(a, b)
	}
	c, _ := DecodeKey(ft, a).Compare(DecodeKey(ft, b))
	return c
}

package catalog

import (
	"encoding/binary"
	"fmt"
	"os"

	"db/column"
)

// encodeTypePrimaryByte packs (is_primary, type code) into the single byte
// shared by .frm fields and the .idx key header (§6.1): bit 0 is_primary,
// bits 1..2 the type code.
func encodeTypePrimaryByte(ft column.FieldType, isPrimary bool) byte {
	b := ft.BitCode() << 1
	if isPrimary {
		b |= 1
	}
	return b
}

func decodeTypePrimaryByte(b byte) (ft column.FieldType, isPrimary bool, err error) {
	ft, err = column.FieldTypeFromBitCode(b >> 1)
	return ft, b&1 == 1, err
}

// writeFRM writes the table's schema in the format of §6.1.
func writeFRM(path string, schema *column.Schema) error {
	buf := make([]byte, 0, 2+len(schema.Fields)*(column.FieldNameSize+1+2))

	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(schema.Fields)))
	buf = append(buf, countBuf[:]...)

	for _, f := range schema.Fields {
		nameBuf := make([]byte, column.FieldNameSize)
		copy(nameBuf, f.Name)
		buf = append(buf, nameBuf...)
		buf = append(buf, encodeTypePrimaryByte(f.Type, f.IsPrimary))
		if f.Type == column.FieldText {
			var widthBuf [2]byte
			binary.LittleEndian.PutUint16(widthBuf[:], uint16(f.Width))
			buf = append(buf, widthBuf[:]...)
		}
	}

	return os.WriteFile(path, buf, 0600)
}

// readFRM reconstructs a schema's field list from its .frm bytes. Offsets
// and row size are recomputed by NewSchema, deterministic from field order.
func readFRM(path, tableName string) (*column.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readFRM: %w", err)
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("readFRM: %s: truncated header", path)
	}

	count := int(binary.LittleEndian.Uint16(data[0:2]))
	fields := make([]column.Field, count)
	off := 2
	for i := 0; i < count; i++ {
		if off+column.FieldNameSize+1 > len(data) {
			return nil, fmt.Errorf("readFRM: %s: truncated field %d", path, i)
		}
		nameBuf := data[off : off+column.FieldNameSize]
		off += column.FieldNameSize
		name := trimZero(nameBuf)

		typeByte := data[off]
		off++
		ft, isPrimary, err := decodeTypePrimaryByte(typeByte)
		if err != nil {
			return nil, fmt.Errorf("readFRM: %s: field %q: %w", path, name, err)
		}

		var width uint32
		if ft == column.FieldText {
			if off+2 > len(data) {
				return nil, fmt.Errorf("readFRM: %s: truncated text width for field %q", path, name)
			}
			width = uint32(binary.LittleEndian.Uint16(data[off : off+2]))
			off += 2
		}

		fields[i] = column.Field{Name: name, Type: ft, Width: width, IsPrimary: isPrimary}
	}

	return column.NewSchema(tableName, fields)
}

func trimZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

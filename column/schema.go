package column

import "fmt"

// FieldType is the on-disk type of a schema field (§3.1). The bit layout
// matches the type_primary_byte of §6.1: bits 1..2 carry the code below.
type FieldType byte

const (
	FieldText FieldType = iota
	FieldInteger
	FieldFloat
	FieldBoolean
)

const (
	TextDefaultWidth = 255
	IntegerWidth     = 4
	FloatWidth       = 4
	BooleanWidth     = 1
	FieldNameSize    = 64
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "TEXT"
	case FieldInteger:
		return "INTEGER"
	case FieldFloat:
		return "FLOAT"
	case FieldBoolean:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("FieldType(%d)", byte(t))
	}
}

// BitCode returns the 2-bit type code used in bits 1..2 of a field's
// type_primary_byte (§6.1): 00 TEXT, 01 INTEGER, 10 FLOAT, 11 BOOLEAN.
func (t FieldType) BitCode() byte {
	switch t {
	case FieldText:
		return 0
	case FieldInteger:
		return 1
	case FieldFloat:
		return 2
	case FieldBoolean:
		return 3
	default:
		panic(fmt.Sprintf("BitCode: unknown field type %v", t))
	}
}

func FieldTypeFromBitCode(code byte) (FieldType, error) {
	switch code {
	case 0:
		return FieldText, nil
	case 1:
		return FieldInteger, nil
	case 2:
		return FieldFloat, nil
	case 3:
		return FieldBoolean, nil
	default:
		return 0, fmt.Errorf("unknown field type code %d", code)
	}
}

// Field is one field definition: (name, type, is_primary_key) plus the
// byte offset/width assigned by NewSchema at CREATE time (§3.1).
type Field struct {
	Name      string
	Type      FieldType
	Width     uint32 // declared TEXT width; ignored for the other types
	IsPrimary bool
	Offset    uint32
}

// ValueWidth is the field's fixed on-disk width.
func (f Field) ValueWidth() uint32 {
	switch f.Type {
	case FieldText:
		return f.Width
	case FieldInteger:
		return IntegerWidth
	case FieldFloat:
		return FloatWidth
	case FieldBoolean:
		return BooleanWidth
	default:
		panic(fmt.Sprintf("ValueWidth: unknown field type %v", f.Type))
	}
}

// Schema is a table's ordered field list with offsets frozen at CREATE time.
type Schema struct {
	Name    string
	Fields  []Field
	RowSize uint32
}

// NewSchema validates field definitions and assigns offsets in declaration
// order, matching the invariants of §3.1: unique names, at most one primary
// key, names no longer than 64 bytes, TEXT fields default to width 255.
func NewSchema(name string, fields []Field) (*Schema, error) {
	seen := make(map[string]bool, len(fields))
	haveKey := false
	out := make([]Field, len(fields))
	var offset uint32

	for i, f := range fields {
		if len(f.Name) == 0 || len(f.Name) > FieldNameSize {
			return nil, fmt.Errorf("field %q: name must be 1..%d bytes", f.Name, FieldNameSize)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = true

		if f.IsPrimary {
			if haveKey {
				return nil, fmt.Errorf("table %q: more than one primary key field", name)
			}
			haveKey = true
		}
		if f.Type == FieldText && f.Width == 0 {
			f.Width = TextDefaultWidth
		}

		f.Offset = offset
		offset += f.ValueWidth()
		out[i] = f
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("table %q: schema must have at least one field", name)
	}

	return &Schema{Name: name, Fields: out, RowSize: offset}, nil
}

// FieldByName returns the field and its position in declaration order.
func (s *Schema) FieldByName(name string) (*Field, int, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], i, true
		}
	}
	return nil, -1, false
}

// PrimaryKey returns the schema's sole primary key field, if any.
func (s *Schema) PrimaryKey() (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].IsPrimary {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// FieldNames returns field names in declaration order, used to expand `*`.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

package table

import (
	"reflect"
	"testing"

	"db/column"
)

func testSchema(t *testing.T) *column.Schema {
	t.Helper()
	schema, err := column.NewSchema("widgets", []column.Field{
		{Name: "id", Type: column.FieldInteger, IsPrimary: true},
		{Name: "price", Type: column.FieldFloat},
		{Name: "active", Type: column.FieldBoolean},
		{Name: "name", Type: column.FieldText, Width: 16},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func TestSerializeDeserializeRowRoundTrip(t *testing.T) {
	schema := testSchema(t)
	row := Row{column.Int(7), column.Float(2.5), column.Bool(true), column.Str("widget")}

	buf := make([]byte, schema.RowSize)
	if err := SerializeRow(schema, row, buf); err != nil {
		t.Fatalf("SerializeRow: %v", err)
	}

	got, err := DeserializeRow(schema, buf)
	if err != nil {
		t.Fatalf("DeserializeRow: %v", err)
	}
	if !reflect.DeepEqual(got, row) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, row)
	}
}

func TestSerializeRowTruncatesText(t *testing.T) {
	schema := testSchema(t)
	row := Row{column.Int(1), column.Float(0), column.Bool(false), column.Str("this name is far too long")}

	buf := make([]byte, schema.RowSize)
	if err := SerializeRow(schema, row, buf); err != nil {
		t.Fatalf("SerializeRow: %v", err)
	}
	got, err := DeserializeRow(schema, buf)
	if err != nil {
		t.Fatalf("DeserializeRow: %v", err)
	}
	if len(got[3].S) != 16 {
		t.Fatalf("expected text truncated to width 16, got %q (%d bytes)", got[3].S, len(got[3].S))
	}
}

func TestSerializeRowTypeMismatch(t *testing.T) {
	schema := testSchema(t)
	row := Row{column.Str("not an int"), column.Float(0), column.Bool(false), column.Str("x")}
	buf := make([]byte, schema.RowSize)
	if err := SerializeRow(schema, row, buf); err == nil {
		t.Fatalf("expected a type mismatch error")
	}
}

func TestFieldValue(t *testing.T) {
	schema := testSchema(t)
	row := Row{column.Int(3), column.Float(1), column.Bool(true), column.Str("abc")}

	v, ok := FieldValue(schema, row, "name")
	if !ok || v.S != "abc" {
		t.Fatalf("FieldValue(name) = %v, %v", v, ok)
	}
	if _, ok := FieldValue(schema, row, "nope"); ok {
		t.Fatalf("expected FieldValue to report missing field")
	}
}

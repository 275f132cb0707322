package catalog

import (
	"testing"

	"db/column"
	"db/dberr"
)

func TestCreateTableThenOpenRoundTripsSchema(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	fields := []column.Field{
		{Name: "id", Type: column.FieldInteger, IsPrimary: true},
		{Name: "name", Type: column.FieldText, Width: 32},
	}
	if err := c.CreateTable("users", fields); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	c2 := New(dir)
	tbl, err := c2.Open("users")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(tbl.Schema.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(tbl.Schema.Fields))
	}
	if tbl.Storage.BTree == nil {
		t.Fatalf("expected a B+Tree storage unit for a table with a primary key")
	}
}

func TestCreateTableTwiceIsSchemaError(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	fields := []column.Field{{Name: "id", Type: column.FieldInteger, IsPrimary: true}}

	if err := c.CreateTable("t", fields); err != nil {
		t.Fatalf("first CreateTable: %v", err)
	}
	err := c.CreateTable("t", fields)
	if err == nil || !dberr.Is(err, dberr.Schema) {
		t.Fatalf("expected a schema error on re-creation, got %v", err)
	}
}

func TestCreateTableWithoutPrimaryKeyUsesSequentialHeap(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	fields := []column.Field{{Name: "line", Type: column.FieldText, Width: 64}}

	if err := c.CreateTable("log", fields); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tbl, err := c.Open("log")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tbl.Storage.Seq == nil {
		t.Fatalf("expected a sequential storage unit for a table without a primary key")
	}
}

func TestInsertAndScanThroughOpenStorage(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	fields := []column.Field{
		{Name: "id", Type: column.FieldInteger, IsPrimary: true},
		{Name: "name", Type: column.FieldText, Width: 16},
	}
	if err := c.CreateTable("users", fields); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tbl, err := c.Open("users")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	row := []column.Value{column.Int(1), column.Str("alice")}
	if err := tbl.Storage.Insert(tbl.Schema, row); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, err := tbl.Storage.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(rows) != 1 || rows[0][1].S != "alice" {
		t.Fatalf("ScanAll = %v", rows)
	}
}

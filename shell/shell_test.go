package shell

import (
	"bytes"
	"strings"
	"testing"

	"db/catalog"
	"db/column"
	"db/executor"
	"db/sql"
)

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	e := executor.New(catalog.New(t.TempDir()))
	return New(e, &buf), &buf
}

func TestDispatchCreateInsertSelect(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.Dispatch(&sql.CreateStmt{
		Table: "users",
		Definitions: []column.Field{
			{Name: "id", Type: column.FieldInteger, IsPrimary: true},
			{Name: "name", Type: column.FieldText, Width: 16},
		},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := sh.Dispatch(&sql.InsertStmt{
		Table:  "users",
		Fields: []string{"*"},
		Values: []column.Value{column.Int(1), column.Str("ada")},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	out.Reset()
	if err := sh.Dispatch(&sql.SelectStmt{Table: "users", SelectedFields: []string{"*"}}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(out.String(), "ada") {
		t.Errorf("expected printed result to contain %q, got %q", "ada", out.String())
	}
	if !strings.Contains(out.String(), "(1 rows)") {
		t.Errorf("expected row count footer, got %q", out.String())
	}
}

func TestExecMetaCommands(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.Dispatch(&sql.CreateStmt{
		Table: "nums",
		Definitions: []column.Field{
			{Name: "id", Type: column.FieldInteger, IsPrimary: true},
		},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out.Reset()
	exit, err := sh.Exec("flush;")
	if err != nil {
		t.Fatalf("flush;: %v", err)
	}
	if exit {
		t.Errorf("flush; should not request exit")
	}
	if !strings.Contains(out.String(), "flushed") {
		t.Errorf("expected flush output, got %q", out.String())
	}

	out.Reset()
	if _, err := sh.Exec("btree nums;"); err != nil {
		t.Fatalf("btree nums;: %v", err)
	}
	if out.Len() == 0 {
		t.Errorf("expected btree print output")
	}

	out.Reset()
	exit, err = sh.Exec("exit;")
	if err != nil {
		t.Fatalf("exit;: %v", err)
	}
	if !exit {
		t.Errorf("exit; should request shell stop")
	}
}

func TestExecWithoutParserReportsUnconfigured(t *testing.T) {
	sh, out := newTestShell(t)
	if _, err := sh.Exec("select * from users;"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !strings.Contains(out.String(), "no SQL parser configured") {
		t.Errorf("expected unconfigured-parser message, got %q", out.String())
	}
}

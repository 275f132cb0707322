package main

import (
	"fmt"
	"os"

	"db/catalog"
	"db/column"
	"db/executor"
	"db/shell"
	"db/sql"
)

// seedDemoData builds and dispatches a few statement trees directly, standing
// in for the (out-of-scope) parser's output on first run against an empty
// data directory (spec.md §1, §6.2).
func seedDemoData(sh *shell.Shell) {
	if err := sh.Dispatch(&sql.CreateStmt{
		Table: "users",
		Definitions: []column.Field{
			{Name: "id", Type: column.FieldInteger, IsPrimary: true},
			{Name: "name", Type: column.FieldText, Width: 32},
			{Name: "age", Type: column.FieldInteger},
		},
	}); err != nil {
		fmt.Fprintln(os.Stderr, "seed create:", err)
		return
	}

	rows := []struct {
		id   int32
		name string
		age  int32
	}{
		{1, "alice", 30},
		{2, "bob", 25},
		{3, "carol", 40},
	}
	for _, r := range rows {
		err := sh.Dispatch(&sql.InsertStmt{
			Table:  "users",
			Fields: []string{"*"},
			Values: []column.Value{column.Int(r.id), column.Str(r.name), column.Int(r.age)},
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed insert:", err)
			return
		}
	}
}

func main() {
	dir := "./data"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintln(os.Stderr, "mkdir", dir, ":", err)
		os.Exit(1)
	}

	cat := catalog.New(dir)
	exec := executor.New(cat)
	sh := shell.New(exec, os.Stdout)

	if _, err := cat.Open("users"); err != nil {
		seedDemoData(sh)
	}

	if err := sh.Run(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "shell:", err)
		os.Exit(1)
	}
}

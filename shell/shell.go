// Package shell implements the outer dispatch loop described in spec.md
// §6.2: meta-commands (flush;, btree <table>;, exit;) and routing of an
// already-built statement tree to the executor.
//
// The SQL tokenizer/parser is an external collaborator (spec.md §1): this
// package never turns statement text into a sql.SelectStmt/InsertStmt/
// CreateStmt itself. Run accepts an optional Parse hook for that; when none
// is wired, non-meta-command input is reported rather than guessed at.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"db/dberr"
	"db/executor"
	"db/sql"
)

// Parse turns one semicolon-terminated statement's text into a
// *sql.SelectStmt, *sql.InsertStmt or *sql.CreateStmt. Left nil by default;
// wiring a real implementation is outside this module's scope.
type Parse func(text string) (interface{}, error)

type Shell struct {
	Executor *executor.Executor
	Out      io.Writer
	Parse    Parse
}

func New(e *executor.Executor, out io.Writer) *Shell {
	return &Shell{Executor: e, Out: out}
}

// Run reads semicolon-terminated statements from in until EOF or exit;,
// printing a prompt and each statement's result to Out. An I/O error (such
// as a corrupt storage file at open) is printed and then returned, ending
// the loop.
func (s *Shell) Run(in io.Reader) error {
	reader := bufio.NewReader(in)
	var buf strings.Builder

	for {
		fmt.Fprint(s.Out, "db > ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				return nil
			}
			return err
		}
		buf.WriteString(line)

		text := strings.TrimSpace(buf.String())
		if text == "" || !strings.HasSuffix(text, ";") {
			continue
		}
		buf.Reset()

		exit, err := s.Exec(text)
		if err != nil {
			fmt.Fprintln(s.Out, "error:", err)
			if dberr.Is(err, dberr.IO) {
				return err
			}
		}
		if exit {
			return nil
		}
	}
}

// Exec dispatches one semicolon-terminated statement, returning true if the
// shell should stop reading further input.
func (s *Shell) Exec(text string) (exit bool, err error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "flush":
		if err := s.Executor.Catalog.FlushAll(); err != nil {
			return false, err
		}
		fmt.Fprintln(s.Out, "flushed")
		return false, nil

	case lower == "exit":
		if err := s.Executor.Catalog.FlushAll(); err != nil {
			return true, err
		}
		fmt.Fprintln(s.Out, "bye")
		return true, nil

	case strings.HasPrefix(lower, "btree "):
		name := strings.TrimSpace(trimmed[len("btree "):])
		tbl, err := s.Executor.Catalog.Open(name)
		if err != nil {
			return false, err
		}
		if tbl.Storage.BTree == nil {
			fmt.Fprintf(s.Out, "%s has no B+Tree (sequential heap table)\n", name)
			return false, nil
		}
		if err := tbl.Storage.BTree.PrintTree(s.Out); err != nil {
			return false, err
		}
		return false, nil
	}

	if s.Parse == nil {
		fmt.Fprintln(s.Out, "no SQL parser configured; use Dispatch with a pre-built statement")
		return false, nil
	}
	stmt, err := s.Parse(text)
	if err != nil {
		return false, err
	}
	return false, s.Dispatch(stmt)
}

// Dispatch runs an already-parsed statement tree and prints its result.
// This is the seam the (out-of-scope) parser's output feeds into.
func (s *Shell) Dispatch(stmt interface{}) error {
	switch st := stmt.(type) {
	case *sql.CreateStmt:
		if err := s.Executor.ExecuteCreate(st); err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "table %q created\n", st.Table)
		return nil

	case *sql.InsertStmt:
		if err := s.Executor.ExecuteInsert(st); err != nil {
			return err
		}
		fmt.Fprintln(s.Out, "1 row inserted")
		return nil

	case *sql.SelectStmt:
		res, err := s.Executor.ExecuteSelect(st)
		if err != nil {
			return err
		}
		writeTable(s.Out, res)
		return nil

	default:
		return fmt.Errorf("shell: unsupported statement type %T", stmt)
	}
}

// writeTable is a minimal stand-in for the (out-of-scope) result printer:
// pipe-separated columns, one header row, one row per result.
func writeTable(out io.Writer, res *executor.SelectResult) {
	fmt.Fprintln(out, strings.Join(res.Fields, " | "))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Fprintln(out, strings.Join(cells, " | "))
	}
	fmt.Fprintf(out, "(%d rows)\n", len(res.Rows))
}

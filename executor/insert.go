package executor

import (
	"db/dberr"
	"db/sql"
	"db/table"
)

// ExecuteInsert implements INSERT (§4.5): expand `*` to schema order, reject
// unknown field names, build a fixed-width row, and insert it into the
// table's storage unit.
func (e *Executor) ExecuteInsert(stmt *sql.InsertStmt) error {
	tbl, err := e.Catalog.Open(stmt.Table)
	if err != nil {
		return err
	}

	fields := stmt.Fields
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "*") {
		fields = tbl.Schema.FieldNames()
	}
	if len(fields) != len(stmt.Values) {
		return dberr.Schemaf("INSERT into %q: %d fields but %d values", stmt.Table, len(fields), len(stmt.Values))
	}

	row := make(table.Row, len(tbl.Schema.Fields))
	for i, name := range fields {
		_, idx, ok := tbl.Schema.FieldByName(name)
		if !ok {
			return dberr.Constraintf("INSERT into %q: unknown field %q", stmt.Table, name)
		}
		row[idx] = stmt.Values[i]
	}

	return tbl.Storage.Insert(tbl.Schema, row)
}

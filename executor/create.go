package executor

import "db/sql"

// ExecuteCreate delegates CREATE TABLE to the catalog (§4.5, §4.4).
func (e *Executor) ExecuteCreate(stmt *sql.CreateStmt) error {
	return e.Catalog.CreateTable(stmt.Table, stmt.Definitions)
}

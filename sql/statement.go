package sql

import "db/column"

// SelectStmt is a parsed SELECT: field list (nil/["*"] means every declared
// field), table name, optional WHERE clusters, optional ORDER BY keys (§4.5).
type SelectStmt struct {
	Table          string
	SelectedFields []string
	Where          []ConditionCluster
	OrderBy        []OrderByExpr
}

// InsertStmt is a parsed INSERT: explicit field names (nil/["*"] means the
// schema's declared order) paired positionally with literal values (§4.5).
type InsertStmt struct {
	Table  string
	Fields []string
	Values []column.Value
}

// CreateStmt is a parsed CREATE TABLE: table name plus field definitions in
// declaration order (§4.4).
type CreateStmt struct {
	Table       string
	Definitions []column.Field
}

package executor

import (
	"sort"

	"db/column"
	"db/dberr"
	"db/sql"
	"db/table"
)

// SelectResult is the human-facing shape of a completed SELECT: the
// projected field names and the matching rows, already sorted (§4.5).
type SelectResult struct {
	Fields []string
	Rows   [][]column.Value
}

// ExecuteSelect implements SELECT (§4.5): resolve the table, evaluate WHERE
// (or scan everything), project the requested columns, then apply ORDER BY.
func (e *Executor) ExecuteSelect(stmt *sql.SelectStmt) (*SelectResult, error) {
	tbl, err := e.Catalog.Open(stmt.Table)
	if err != nil {
		return nil, err
	}

	var rows []table.Row
	if len(stmt.Where) == 0 {
		rows, err = tbl.Storage.ScanAll()
	} else {
		rows, err = evaluateWhere(tbl, stmt.Where)
	}
	if err != nil {
		return nil, err
	}

	fields := stmt.SelectedFields
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "*") {
		fields = tbl.Schema.FieldNames()
	}
	for _, name := range fields {
		if _, _, ok := tbl.Schema.FieldByName(name); !ok {
			return nil, dberr.Schemaf("SELECT from %q: unknown field %q", stmt.Table, name)
		}
	}

	projected, err := projectAndOrder(tbl.Schema, rows, fields, stmt.OrderBy)
	if err != nil {
		return nil, err
	}

	return &SelectResult{Fields: fields, Rows: projected}, nil
}

// projectedRow pairs one row's selected values with the (possibly shared)
// sort keys ORDER BY needs — a key already present in the projection is
// referenced rather than re-decoded (§4.5).
type projectedRow struct {
	values   []column.Value
	sortKeys []*column.Value
}

func projectAndOrder(schema *column.Schema, rows []table.Row, fields []string, orderBy []sql.OrderByExpr) ([][]column.Value, error) {
	projected := make([]projectedRow, len(rows))

	for i, row := range rows {
		values := make([]column.Value, len(fields))
		fieldPos := make(map[string]int, len(fields))
		for j, name := range fields {
			v, ok := table.FieldValue(schema, row, name)
			if !ok {
				return nil, dberr.Schemaf("unknown field %q", name)
			}
			values[j] = v
			fieldPos[name] = j
		}

		sortKeys := make([]*column.Value, len(orderBy))
		for k, ob := range orderBy {
			if j, ok := fieldPos[ob.Field]; ok {
				sortKeys[k] = &values[j]
				continue
			}
			v, ok := table.FieldValue(schema, row, ob.Field)
			if !ok {
				return nil, dberr.Schemaf("ORDER BY: unknown field %q", ob.Field)
			}
			sortKeys[k] = &v
		}

		projected[i] = projectedRow{values: values, sortKeys: sortKeys}
	}

	if len(orderBy) > 0 {
		var sortErr error
		sort.SliceStable(projected, func(i, j int) bool {
			for k, ob := range orderBy {
				c, err := projected[i].sortKeys[k].Compare(*projected[j].sortKeys[k])
				if err != nil {
					sortErr = err
					return false
				}
				if ob.Order.IsDesc() {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	out := make([][]column.Value, len(projected))
	for i, p := range projected {
		out[i] = p.values
	}
	return out, nil
}

package executor

import (
	"db/catalog"
	"db/column"
	"db/dberr"
	"db/sql"
	"db/table"
)

// rowKey is a comparable fingerprint for row-set union/intersection, since
// table.Row holds column.Value slices that are not themselves comparable.
type rowKey string

func keyOf(schema *column.Schema, row table.Row) rowKey {
	buf := make([]byte, schema.RowSize)
	_ = table.SerializeRow(schema, row, buf)
	return rowKey(buf)
}

// matchExpr evaluates one primitive condition against a row.
func matchExpr(schema *column.Schema, row table.Row, expr *sql.ConditionExpr) (bool, error) {
	v, ok := table.FieldValue(schema, row, expr.Field)
	if !ok {
		return false, dberr.Schemaf("unknown field %q", expr.Field)
	}
	return expr.Matches(v)
}

// matchCondition evaluates one cluster item (expression or nested cluster)
// against a single row, used by the sequential table's per-row full scan.
func matchCondition(schema *column.Schema, row table.Row, cond sql.Condition) (bool, error) {
	if cond.IsExpr() {
		return matchExpr(schema, row, cond.Expr)
	}
	return matchClusterRow(schema, row, cond.Cluster)
}

func matchClusterRow(schema *column.Schema, row table.Row, cluster *sql.ConditionCluster) (bool, error) {
	result := false
	first := true
	for _, cond := range cluster.Conditions {
		var op sql.LogicalOperator
		if cond.IsExpr() {
			op = cond.Expr.LogicalOperator
		} else {
			op = cond.Cluster.LogicalOperator
		}
		ok, err := matchCondition(schema, row, cond)
		if err != nil {
			return false, err
		}
		if first {
			result = ok
			first = false
			continue
		}
		if op == sql.LogicalAnd {
			result = result && ok
		} else {
			result = result || ok
		}
	}
	return result, nil
}

// evaluateWhere implements §4.5.1 in full: sort top-level clusters so those
// with a primary-key predicate run first, then combine each cluster's row
// set left-to-right by its outer logical operator.
func evaluateWhere(tbl *catalog.OpenTable, clusters []sql.ConditionCluster) ([]table.Row, error) {
	if tbl.Storage.BTree == nil {
		return evaluateWhereSequential(tbl, clusters)
	}

	keyField, _ := tbl.Schema.PrimaryKey()
	ordered := make([]sql.ConditionCluster, len(clusters))
	copy(ordered, clusters)
	sortClustersIndexFirst(ordered, keyField.Name)

	var result []table.Row
	haveResult := false

	for _, cluster := range ordered {
		rows, err := evaluateClusterIndexed(tbl, keyField.Name, &cluster)
		if err != nil {
			return nil, err
		}
		if !haveResult {
			result = rows
			haveResult = true
		} else if cluster.LogicalOperator == sql.LogicalOr {
			result = unionRows(tbl.Schema, result, rows)
		} else {
			result = intersectRows(tbl.Schema, result, rows)
		}
	}
	return result, nil
}

func sortClustersIndexFirst(clusters []sql.ConditionCluster, keyField string) {
	n := len(clusters)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && !clusters[j-1].HasPrimaryKeyExpr(keyField) && clusters[j].HasPrimaryKeyExpr(keyField); j-- {
			clusters[j-1], clusters[j] = clusters[j], clusters[j-1]
		}
	}
}

// evaluateClusterIndexed implements one cluster's optimisation for a
// B+Tree-backed table (§4.5.1): AND-bound expressions evaluate in a single
// scan, index-assisted if one is an =, >= or > comparison on the primary
// key; everything else unions
// in via its own full scan or recursive cluster evaluation.
func evaluateClusterIndexed(tbl *catalog.OpenTable, keyFieldName string, cluster *sql.ConditionCluster) ([]table.Row, error) {
	andBound, rest := cluster.AndBoundExprs()

	match := func(row table.Row) bool {
		for _, e := range andBound {
			ok, err := matchExpr(tbl.Schema, row, e)
			if err != nil || !ok {
				return false
			}
		}
		return true
	}

	var result []table.Row
	var err error
	haveResult := len(andBound) > 0
	if startKey, ok := andBoundKeyValue(andBound, keyFieldName); ok {
		result, err = tbl.Storage.BTree.ScanFromKey(startKey, match)
	} else {
		result, err = tbl.Storage.BTree.ScanAllWhere(match)
	}
	if err != nil {
		return nil, err
	}

	for _, cond := range rest {
		var subRows []table.Row
		op := sql.LogicalOr
		if cond.IsExpr() {
			op = cond.Expr.LogicalOperator
			subRows, err = tbl.Storage.BTree.ScanAllWhere(func(row table.Row) bool {
				ok, err := matchExpr(tbl.Schema, row, cond.Expr)
				return err == nil && ok
			})
		} else {
			op = cond.Cluster.LogicalOperator
			subRows, err = evaluateClusterIndexed(tbl, keyFieldName, cond.Cluster)
		}
		if err != nil {
			return nil, err
		}
		if !haveResult {
			result = subRows
			haveResult = true
			continue
		}
		if op == sql.LogicalOr {
			result = unionRows(tbl.Schema, result, subRows)
		} else {
			result = intersectRows(tbl.Schema, result, subRows)
		}
	}

	return result, nil
}

// andBoundKeyValue looks for an =, >= or > AND-bound expression on the
// primary key to seed an index-assisted scan start position.
func andBoundKeyValue(exprs []*sql.ConditionExpr, keyFieldName string) (column.Value, bool) {
	for _, e := range exprs {
		if e.Field == keyFieldName && (e.Operator == sql.OpEquals || e.Operator == sql.OpGreaterEquals || e.Operator == sql.OpGreater) {
			return e.Value, true
		}
	}
	return column.Value{}, false
}

func evaluateWhereSequential(tbl *catalog.OpenTable, clusters []sql.ConditionCluster) ([]table.Row, error) {
	return tbl.Storage.Seq.ScanAllWhere(func(row table.Row) bool {
		result := false
		first := true
		for i := range clusters {
			ok, evalErr := matchClusterRow(tbl.Schema, row, &clusters[i])
			if evalErr != nil {
				return false
			}
			if first {
				result = ok
				first = false
			} else if clusters[i].LogicalOperator == sql.LogicalOr {
				result = result || ok
			} else {
				result = result && ok
			}
		}
		return result
	})
}

func unionRows(schema *column.Schema, a, b []table.Row) []table.Row {
	seen := make(map[rowKey]bool, len(a))
	out := make([]table.Row, 0, len(a)+len(b))
	for _, r := range a {
		k := keyOf(schema, r)
		if !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	for _, r := range b {
		k := keyOf(schema, r)
		if !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	return out
}

func intersectRows(schema *column.Schema, a, b []table.Row) []table.Row {
	inB := make(map[rowKey]bool, len(b))
	for _, r := range b {
		inB[keyOf(schema, r)] = true
	}
	var out []table.Row
	for _, r := range a {
		if inB[keyOf(schema, r)] {
			out = append(out, r)
		}
	}
	return out
}

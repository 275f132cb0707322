package executor

import (
	"reflect"
	"sort"
	"testing"

	"db/catalog"
	"db/column"
	"db/sql"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return New(catalog.New(t.TempDir()))
}

func createUsers(t *testing.T, e *Executor) {
	t.Helper()
	err := e.ExecuteCreate(&sql.CreateStmt{
		Table: "users",
		Definitions: []column.Field{
			{Name: "id", Type: column.FieldInteger, IsPrimary: true},
			{Name: "name", Type: column.FieldText, Width: 32},
			{Name: "age", Type: column.FieldInteger},
		},
	})
	if err != nil {
		t.Fatalf("ExecuteCreate: %v", err)
	}
}

func insertUser(t *testing.T, e *Executor, id int32, name string, age int32) {
	t.Helper()
	err := e.ExecuteInsert(&sql.InsertStmt{
		Table:  "users",
		Fields: []string{"*"},
		Values: []column.Value{column.Int(id), column.Str(name), column.Int(age)},
	})
	if err != nil {
		t.Fatalf("ExecuteInsert(%d): %v", id, err)
	}
}

func TestCreateInsertSelectAll(t *testing.T) {
	e := newTestExecutor(t)
	createUsers(t, e)
	insertUser(t, e, 1, "alice", 30)
	insertUser(t, e, 2, "bob", 25)

	res, err := e.ExecuteSelect(&sql.SelectStmt{Table: "users", SelectedFields: []string{"*"}})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
}

func TestSelectWithWhereOnPrimaryKey(t *testing.T) {
	e := newTestExecutor(t)
	createUsers(t, e)
	insertUser(t, e, 1, "alice", 30)
	insertUser(t, e, 2, "bob", 25)
	insertUser(t, e, 3, "carol", 40)

	res, err := e.ExecuteSelect(&sql.SelectStmt{
		Table:          "users",
		SelectedFields: []string{"name"},
		Where: []sql.ConditionCluster{
			{LogicalOperator: sql.LogicalAnd, Conditions: []sql.Condition{
				sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "id", Operator: sql.OpEquals, Value: column.Int(2)}),
			}},
		},
	})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].S != "bob" {
		t.Fatalf("expected [bob], got %v", res.Rows)
	}
}

func TestSelectWithOrderByDesc(t *testing.T) {
	e := newTestExecutor(t)
	createUsers(t, e)
	insertUser(t, e, 1, "alice", 30)
	insertUser(t, e, 2, "bob", 25)
	insertUser(t, e, 3, "carol", 40)

	res, err := e.ExecuteSelect(&sql.SelectStmt{
		Table:          "users",
		SelectedFields: []string{"name", "age"},
		OrderBy:        []sql.OrderByExpr{{Field: "age", Order: sql.Desc}},
	})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	want := []string{"carol", "alice", "bob"}
	for i, w := range want {
		if res.Rows[i][0].S != w {
			t.Fatalf("row %d = %q, want %q", i, res.Rows[i][0].S, w)
		}
	}
}

func TestInsertUnknownFieldIsRejected(t *testing.T) {
	e := newTestExecutor(t)
	createUsers(t, e)

	err := e.ExecuteInsert(&sql.InsertStmt{
		Table:  "users",
		Fields: []string{"id", "nickname"},
		Values: []column.Value{column.Int(1), column.Str("x")},
	})
	if err == nil {
		t.Fatalf("expected an error inserting an unknown field")
	}
}

// nestedWhere builds WHERE id > 0 AND (name = 'bob' OR name = 'carol')
// (nested cluster AND-bound into the outer one) when and is true, or
// WHERE id = 1 OR (name = 'carol' AND age > 30) (nested cluster OR-bound
// into the outer one) when and is false.
func nestedWhere(and bool) []sql.ConditionCluster {
	if and {
		nested := &sql.ConditionCluster{
			LogicalOperator: sql.LogicalAnd,
			Conditions: []sql.Condition{
				sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "name", Operator: sql.OpEquals, Value: column.Str("bob")}),
				sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalOr, Field: "name", Operator: sql.OpEquals, Value: column.Str("carol")}),
			},
		}
		return []sql.ConditionCluster{{
			LogicalOperator: sql.LogicalAnd,
			Conditions: []sql.Condition{
				sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "id", Operator: sql.OpGreater, Value: column.Int(0)}),
				sql.ClusterCondition(nested),
			},
		}}
	}

	nested := &sql.ConditionCluster{
		LogicalOperator: sql.LogicalOr,
		Conditions: []sql.Condition{
			sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "name", Operator: sql.OpEquals, Value: column.Str("carol")}),
			sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "age", Operator: sql.OpGreater, Value: column.Int(30)}),
		},
	}
	return []sql.ConditionCluster{{
		LogicalOperator: sql.LogicalAnd,
		Conditions: []sql.Condition{
			sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "id", Operator: sql.OpEquals, Value: column.Int(1)}),
			sql.ClusterCondition(nested),
		},
	}}
}

func namesOf(t *testing.T, res *SelectResult) []string {
	t.Helper()
	var names []string
	for _, row := range res.Rows {
		names = append(names, row[0].S)
	}
	sort.Strings(names)
	return names
}

func TestNestedClusterAndBoundIntersectsOnIndexedTable(t *testing.T) {
	e := newTestExecutor(t)
	createUsers(t, e)
	insertUser(t, e, 1, "alice", 30)
	insertUser(t, e, 2, "bob", 25)
	insertUser(t, e, 3, "carol", 40)

	res, err := e.ExecuteSelect(&sql.SelectStmt{Table: "users", SelectedFields: []string{"name"}, Where: nestedWhere(true)})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if got := namesOf(t, res); !reflect.DeepEqual(got, []string{"bob", "carol"}) {
		t.Fatalf("id > 0 AND (name = bob OR name = carol): got %v, want [bob carol]", got)
	}
}

func TestNestedClusterOrBoundUnionsOnIndexedTable(t *testing.T) {
	e := newTestExecutor(t)
	createUsers(t, e)
	insertUser(t, e, 1, "alice", 30)
	insertUser(t, e, 2, "bob", 25)
	insertUser(t, e, 3, "carol", 40)

	res, err := e.ExecuteSelect(&sql.SelectStmt{Table: "users", SelectedFields: []string{"name"}, Where: nestedWhere(false)})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if got := namesOf(t, res); !reflect.DeepEqual(got, []string{"alice", "carol"}) {
		t.Fatalf("id = 1 OR (name = carol AND age > 30): got %v, want [alice carol]", got)
	}
}

// createPeople is the no-primary-key (sequential heap) twin of createUsers,
// used to confirm the indexed and full-scan predicate paths agree on the
// same nested-cluster WHERE trees (same field names, no "id" primary key).
func createPeople(t *testing.T, e *Executor) {
	t.Helper()
	err := e.ExecuteCreate(&sql.CreateStmt{
		Table: "people",
		Definitions: []column.Field{
			{Name: "id", Type: column.FieldInteger},
			{Name: "name", Type: column.FieldText, Width: 32},
			{Name: "age", Type: column.FieldInteger},
		},
	})
	if err != nil {
		t.Fatalf("ExecuteCreate: %v", err)
	}
}

func insertPerson(t *testing.T, e *Executor, id int32, name string, age int32) {
	t.Helper()
	err := e.ExecuteInsert(&sql.InsertStmt{
		Table:  "people",
		Fields: []string{"*"},
		Values: []column.Value{column.Int(id), column.Str(name), column.Int(age)},
	})
	if err != nil {
		t.Fatalf("ExecuteInsert(%d): %v", id, err)
	}
}

func TestNestedClusterAndBoundIntersectsOnSequentialTable(t *testing.T) {
	e := newTestExecutor(t)
	createPeople(t, e)
	insertPerson(t, e, 1, "alice", 30)
	insertPerson(t, e, 2, "bob", 25)
	insertPerson(t, e, 3, "carol", 40)

	res, err := e.ExecuteSelect(&sql.SelectStmt{Table: "people", SelectedFields: []string{"name"}, Where: nestedWhere(true)})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if got := namesOf(t, res); !reflect.DeepEqual(got, []string{"bob", "carol"}) {
		t.Fatalf("id > 0 AND (name = bob OR name = carol): got %v, want [bob carol]", got)
	}
}

func TestNestedClusterOrBoundUnionsOnSequentialTable(t *testing.T) {
	e := newTestExecutor(t)
	createPeople(t, e)
	insertPerson(t, e, 1, "alice", 30)
	insertPerson(t, e, 2, "bob", 25)
	insertPerson(t, e, 3, "carol", 40)

	res, err := e.ExecuteSelect(&sql.SelectStmt{Table: "people", SelectedFields: []string{"name"}, Where: nestedWhere(false)})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if got := namesOf(t, res); !reflect.DeepEqual(got, []string{"alice", "carol"}) {
		t.Fatalf("id = 1 OR (name = carol AND age > 30): got %v, want [alice carol]", got)
	}
}

func TestSequentialTableFullScanWhere(t *testing.T) {
	e := newTestExecutor(t)
	if err := e.ExecuteCreate(&sql.CreateStmt{
		Table:       "log",
		Definitions: []column.Field{{Name: "line", Type: column.FieldText, Width: 64}},
	}); err != nil {
		t.Fatalf("ExecuteCreate: %v", err)
	}
	for _, l := range []string{"keep", "drop", "keep"} {
		if err := e.ExecuteInsert(&sql.InsertStmt{Table: "log", Fields: []string{"*"}, Values: []column.Value{column.Str(l)}}); err != nil {
			t.Fatalf("ExecuteInsert: %v", err)
		}
	}

	res, err := e.ExecuteSelect(&sql.SelectStmt{
		Table:          "log",
		SelectedFields: []string{"*"},
		Where: []sql.ConditionCluster{
			{LogicalOperator: sql.LogicalAnd, Conditions: []sql.Condition{
				sql.ExprCondition(&sql.ConditionExpr{LogicalOperator: sql.LogicalAnd, Field: "line", Operator: sql.OpEquals, Value: column.Str("keep")}),
			}},
		},
	})
	if err != nil {
		t.Fatalf("ExecuteSelect: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
}

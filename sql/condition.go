package sql

import "db/column"

// Operator is a condition expression's comparison operator (§4.5.1).
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreater
	OpGreaterEquals
	OpLess
	OpLessEquals
	OpIn
	OpNotIn
)

func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "!="
	case OpGreater:
		return ">"
	case OpGreaterEquals:
		return ">="
	case OpLess:
		return "<"
	case OpLessEquals:
		return "<="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	default:
		return "?"
	}
}

// LogicalOperator combines a condition's contribution into a running result
// set: OR unions, AND intersects (§4.5.1).
type LogicalOperator int

const (
	LogicalOr LogicalOperator = iota
	LogicalAnd
)

// ConditionExpr is a primitive predicate: `field op value` (§4.5.1).
type ConditionExpr struct {
	LogicalOperator LogicalOperator
	Field           string
	Operator        Operator
	Value           column.Value
}

// Matches evaluates the expression against a single field value.
func (e *ConditionExpr) Matches(v column.Value) (bool, error) {
	switch e.Operator {
	case OpEquals:
		return v.Equal(e.Value), nil
	case OpNotEquals:
		return !v.Equal(e.Value), nil
	case OpIn:
		return v.In(e.Value)
	case OpNotIn:
		ok, err := v.In(e.Value)
		return !ok, err
	default:
		c, err := v.Compare(e.Value)
		if err != nil {
			return false, err
		}
		switch e.Operator {
		case OpGreater:
			return c > 0, nil
		case OpGreaterEquals:
			return c >= 0, nil
		case OpLess:
			return c < 0, nil
		case OpLessEquals:
			return c <= 0, nil
		default:
			return false, nil
		}
	}
}

// Condition is one item of a cluster: either a primitive expression or a
// nested cluster (§4.5.1). Exactly one of Expr/Cluster is set.
type Condition struct {
	Expr    *ConditionExpr
	Cluster *ConditionCluster
}

func ExprCondition(e *ConditionExpr) Condition       { return Condition{Expr: e} }
func ClusterCondition(c *ConditionCluster) Condition { return Condition{Cluster: c} }

func (c Condition) IsExpr() bool { return c.Expr != nil }

// ConditionCluster is a list of conditions combined left-to-right under one
// outer logical operator, possibly containing nested clusters (§4.5.1).
type ConditionCluster struct {
	LogicalOperator LogicalOperator
	Conditions      []Condition
}

// HasPrimaryKeyExpr reports whether any top-level expression in the cluster
// names the primary key field, used to sort clusters index-first (§4.5.1).
func (c *ConditionCluster) HasPrimaryKeyExpr(keyField string) bool {
	for _, cond := range c.Conditions {
		if cond.IsExpr() && cond.Expr.Field == keyField {
			return true
		}
	}
	return false
}

// AndBoundExprs partitions the cluster's top-level items into AND-bound
// primitive expressions and everything else (OR-bound expressions and
// nested clusters), per the optimisation in §4.5.1.
func (c *ConditionCluster) AndBoundExprs() (andBound []*ConditionExpr, rest []Condition) {
	for _, cond := range c.Conditions {
		if cond.IsExpr() && cond.Expr.LogicalOperator == LogicalAnd {
			andBound = append(andBound, cond.Expr)
		} else {
			rest = append(rest, cond)
		}
	}
	return andBound, rest
}

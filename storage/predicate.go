package storage

// Operator identifies the comparison a Condition applies to its property.
type Operator int

const (
	OpEq Operator = iota + 1
	OpNotEq
	OpGt
	OpGtEq
	OpLt
	OpLtEq
	OpBetween
	OpIn
	OpContains
	OpStartsWith
)

// String returns the operator's wire-friendly name.
func (op Operator) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpNotEq:
		return "neq"
	case OpGt:
		return "gt"
	case OpGtEq:
		return "gte"
	case OpLt:
		return "lt"
	case OpLtEq:
		return "lte"
	case OpBetween:
		return "between"
	case OpIn:
		return "in"
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "startswith"
	}
	return "unknown"
}

// ParamCount returns how many parameter values the operator binds.
func (op Operator) ParamCount() int {
	if op == OpBetween {
		return 2
	}
	return 1
}

// StringOrder selects the collation used when a condition or ordering
// compares strings.
type StringOrder int

const (
	// StringOrderCaseInsensitive is the default collation.
	StringOrderCaseInsensitive StringOrder = iota
	StringOrderCaseSensitive
)

// Condition is one filter clause of a predicate template: a property name, a
// comparison operator, the bound parameter value(s) and the collation that was
// active when the condition was added. Conditions are positionally
// addressable in the order they were added, which is how parameters are
// rebound on a built query.
type Condition struct {
	Property  string
	Op        Operator
	Value     any
	Value2    any // upper bound for OpBetween
	Collation StringOrder
}

// Eq matches entities whose property equals v.
func Eq(property string, v any) Condition {
	return Condition{Property: property, Op: OpEq, Value: v}
}

// NotEq matches entities whose property differs from v.
func NotEq(property string, v any) Condition {
	return Condition{Property: property, Op: OpNotEq, Value: v}
}

// Gt matches entities whose property is greater than v.
func Gt(property string, v any) Condition {
	return Condition{Property: property, Op: OpGt, Value: v}
}

// GtEq matches entities whose property is greater than or equal to v.
func GtEq(property string, v any) Condition {
	return Condition{Property: property, Op: OpGtEq, Value: v}
}

// Lt matches entities whose property is less than v.
func Lt(property string, v any) Condition {
	return Condition{Property: property, Op: OpLt, Value: v}
}

// LtEq matches entities whose property is less than or equal to v.
func LtEq(property string, v any) Condition {
	return Condition{Property: property, Op: OpLtEq, Value: v}
}

// Between matches entities whose property lies in [lo, hi], inclusive.
func Between(property string, lo, hi any) Condition {
	return Condition{Property: property, Op: OpBetween, Value: lo, Value2: hi}
}

// In matches entities whose property equals any of the given values.
func In(property string, values ...any) Condition {
	return Condition{Property: property, Op: OpIn, Value: values}
}

// Contains matches string properties containing v.
func Contains(property string, v string) Condition {
	return Condition{Property: property, Op: OpContains, Value: v}
}

// StartsWith matches string properties beginning with v.
func StartsWith(property string, v string) Condition {
	return Condition{Property: property, Op: OpStartsWith, Value: v}
}

// Order is one sort clause of a predicate template.
type Order struct {
	Property   string
	Descending bool
}

// Window is the result window a query executes with. When Windowed is false
// the query runs unwindowed; otherwise Limit and Offset have already been
// clamped to non-negative values, with a zero Limit meaning unlimited.
type Window struct {
	Limit    int
	Offset   int
	Windowed bool
}

// QuerySpec is the immutable description a prepared query is built from:
// conditions in the order they were added (with their default parameter
// values) and the orderings to apply.
type QuerySpec struct {
	Conditions []Condition
	Orders     []Order
}

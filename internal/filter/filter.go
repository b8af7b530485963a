// Package filter models WHERE-clause expression trees and renders them to
// MySQL text.
package filter

import "github.com/tordrt/dbwrapper/internal/value"

// Operator is a comparison or logical combinator.
type Operator int

const (
	And Operator = iota
	Or
	Equals
	NotEquals
	GreaterThan
	GreaterThanOrEqualTo
	LessThan
	LessThanOrEqualTo
	In
	NotIn
	Contains
	ContainsNot
	StartsWith
	StartsWithNot
	EndsWith
	EndsWithNot
	IsNull
	IsNotNull
)

var operatorNames = map[Operator]string{
	And:                  "And",
	Or:                   "Or",
	Equals:               "Equals",
	NotEquals:            "NotEquals",
	GreaterThan:          "GreaterThan",
	GreaterThanOrEqualTo: "GreaterThanOrEqualTo",
	LessThan:             "LessThan",
	LessThanOrEqualTo:    "LessThanOrEqualTo",
	In:                   "In",
	NotIn:                "NotIn",
	Contains:             "Contains",
	ContainsNot:          "ContainsNot",
	StartsWith:           "StartsWith",
	StartsWithNot:        "StartsWithNot",
	EndsWith:             "EndsWith",
	EndsWithNot:          "EndsWithNot",
	IsNull:               "IsNull",
	IsNotNull:            "IsNotNull",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "Operator(?)"
}

// Logical reports whether o combines two sub-expressions.
func (o Operator) Logical() bool { return o == And || o == Or }

// Expression is a node of a filter tree. Leaves carry Column and the right
// operand (Value, or Values for In/NotIn); And/Or nodes carry Left and Right.
type Expression struct {
	Column   string
	Operator Operator
	Value    value.Value
	Values   []value.Value
	Left     *Expression
	Right    *Expression
}

func leaf(column string, op Operator, v value.Value) *Expression {
	return &Expression{Column: column, Operator: op, Value: v}
}

// Eq matches rows where column equals v.
func Eq(column string, v value.Value) *Expression { return leaf(column, Equals, v) }

// NotEq matches rows where column differs from v.
func NotEq(column string, v value.Value) *Expression { return leaf(column, NotEquals, v) }

// Gt matches rows where column is greater than v.
func Gt(column string, v value.Value) *Expression { return leaf(column, GreaterThan, v) }

// Gte matches rows where column is greater than or equal to v.
func Gte(column string, v value.Value) *Expression { return leaf(column, GreaterThanOrEqualTo, v) }

// Lt matches rows where column is less than v.
func Lt(column string, v value.Value) *Expression { return leaf(column, LessThan, v) }

// Lte matches rows where column is less than or equal to v.
func Lte(column string, v value.Value) *Expression { return leaf(column, LessThanOrEqualTo, v) }

// InValues matches rows where column is one of vs.
func InValues(column string, vs ...value.Value) *Expression {
	return &Expression{Column: column, Operator: In, Values: vs}
}

// NotInValues matches rows where column is none of vs.
func NotInValues(column string, vs ...value.Value) *Expression {
	return &Expression{Column: column, Operator: NotIn, Values: vs}
}

// HasSubstring matches rows where column contains s. Wildcards in s match
// literally.
func HasSubstring(column, s string) *Expression { return leaf(column, Contains, value.Text(s)) }

// NotHasSubstring matches rows where column does not contain s.
func NotHasSubstring(column, s string) *Expression { return leaf(column, ContainsNot, value.Text(s)) }

// HasPrefix matches rows where column starts with s.
func HasPrefix(column, s string) *Expression { return leaf(column, StartsWith, value.Text(s)) }

// NotHasPrefix matches rows where column does not start with s.
func NotHasPrefix(column, s string) *Expression { return leaf(column, StartsWithNot, value.Text(s)) }

// HasSuffix matches rows where column ends with s.
func HasSuffix(column, s string) *Expression { return leaf(column, EndsWith, value.Text(s)) }

// NotHasSuffix matches rows where column does not end with s.
func NotHasSuffix(column, s string) *Expression { return leaf(column, EndsWithNot, value.Text(s)) }

// Null matches rows where column IS NULL.
func Null(column string) *Expression { return &Expression{Column: column, Operator: IsNull} }

// NotNull matches rows where column IS NOT NULL.
func NotNull(column string) *Expression { return &Expression{Column: column, Operator: IsNotNull} }

// All joins exprs with AND, left to right. Nil entries are skipped; a nil
// result means no filter.
func All(exprs ...*Expression) *Expression { return join(And, exprs) }

// Any joins exprs with OR, left to right. Nil entries are skipped.
func Any(exprs ...*Expression) *Expression { return join(Or, exprs) }

func join(op Operator, exprs []*Expression) *Expression {
	var out *Expression
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &Expression{Operator: op, Left: out, Right: e}
	}
	return out
}

// And returns a new node combining e and other with AND. e is not modified.
func (e *Expression) And(other *Expression) *Expression { return All(e, other) }

// Or returns a new node combining e and other with OR. e is not modified.
func (e *Expression) Or(other *Expression) *Expression { return Any(e, other) }

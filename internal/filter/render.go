package filter

import (
	"strings"

	"github.com/tordrt/dbwrapper/internal/encode"
	"github.com/tordrt/dbwrapper/internal/sqlerr"
	"github.com/tordrt/dbwrapper/internal/value"
)

var comparisonTokens = map[Operator]string{
	Equals:               "=",
	NotEquals:            "<>",
	GreaterThan:          ">",
	GreaterThanOrEqualTo: ">=",
	LessThan:             "<",
	LessThanOrEqualTo:    "<=",
}

// LIKE patterns escape their own wildcards with a backslash, the MySQL
// default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Where renders e as a WHERE clause with a leading space. A nil expression
// yields the empty string.
func Where(enc *encode.Encoder, e *Expression) (string, error) {
	if e == nil {
		return "", nil
	}
	s, err := Render(enc, e)
	if err != nil {
		return "", err
	}
	return " WHERE " + s, nil
}

// Render renders e as a boolean SQL expression.
func Render(enc *encode.Encoder, e *Expression) (string, error) {
	if e == nil {
		return "", sqlerr.Usage("filter", "expression is nil")
	}
	if e.Operator.Logical() {
		if e.Left == nil || e.Right == nil {
			return "", sqlerr.Usage("filter", "%s requires both sub-expressions", e.Operator)
		}
		left, err := Render(enc, e.Left)
		if err != nil {
			return "", err
		}
		right, err := Render(enc, e.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + ") " + strings.ToUpper(e.Operator.String()) + " (" + right + ")", nil
	}

	if e.Column == "" {
		return "", sqlerr.Usage("filter", "%s requires a column", e.Operator)
	}
	col := encode.QuoteIdentifier(e.Column)

	switch e.Operator {
	case Equals, NotEquals:
		if e.Value.IsNull() {
			if e.Operator == Equals {
				return col + " IS NULL", nil
			}
			return col + " IS NOT NULL", nil
		}
		return col + " " + comparisonTokens[e.Operator] + " " + enc.Literal(e.Value), nil
	case GreaterThan, GreaterThanOrEqualTo, LessThan, LessThanOrEqualTo:
		if e.Value.IsNull() {
			return "", sqlerr.Usage("filter", "%s on %s cannot compare against null", e.Operator, e.Column)
		}
		return col + " " + comparisonTokens[e.Operator] + " " + enc.Literal(e.Value), nil
	case In, NotIn:
		if len(e.Values) == 0 {
			return "", sqlerr.Usage("filter", "%s on %s requires at least one value", e.Operator, e.Column)
		}
		lits := make([]string, len(e.Values))
		for i, v := range e.Values {
			lits[i] = enc.Literal(v)
		}
		token := " IN ("
		if e.Operator == NotIn {
			token = " NOT IN ("
		}
		return col + token + strings.Join(lits, ", ") + ")", nil
	case Contains, ContainsNot:
		return col + like(e.Operator == ContainsNot) + pattern(enc, e.Value, "%", "%"), nil
	case StartsWith, StartsWithNot:
		return col + like(e.Operator == StartsWithNot) + pattern(enc, e.Value, "", "%"), nil
	case EndsWith, EndsWithNot:
		return col + like(e.Operator == EndsWithNot) + pattern(enc, e.Value, "%", ""), nil
	case IsNull:
		return col + " IS NULL", nil
	case IsNotNull:
		return col + " IS NOT NULL", nil
	default:
		return "", sqlerr.Usage("filter", "unsupported operator %d", int(e.Operator))
	}
}

func like(negate bool) string {
	if negate {
		return " NOT LIKE "
	}
	return " LIKE "
}

func pattern(enc *encode.Encoder, v value.Value, prefix, suffix string) string {
	return encode.TextLiteral(prefix + likeEscaper.Replace(enc.Text(v)) + suffix)
}

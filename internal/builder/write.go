package builder

import (
	"strings"

	"github.com/tordrt/dbwrapper/internal/encode"
	"github.com/tordrt/dbwrapper/internal/filter"
	"github.com/tordrt/dbwrapper/internal/sqlerr"
	"github.com/tordrt/dbwrapper/internal/value"
)

// Insert renders a single-row INSERT. The generated key, if any, is
// reported by the server in the statement's OK result.
func (b *Builder) Insert(table string, row value.Row) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if err := validateRow("keyValuePairs", row); err != nil {
		return "", err
	}
	return "INSERT INTO " + encode.QuoteIdentifier(table) +
		" (" + columnList(row.Names()) + ") VALUES " + b.tuple(row), nil
}

// InsertMultiple renders one INSERT carrying every row as a separate tuple,
// in input order. Every row must have exactly the key set of the first row;
// values are emitted in the first row's key order.
func (b *Builder) InsertMultiple(table string, rows []value.Row) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", sqlerr.Usage("keyValuePairList", "at least one row is required")
	}
	reference := rows[0]
	if err := validateRow("keyValuePairList", reference); err != nil {
		return "", err
	}
	names := reference.Names()

	ordered := make([]value.Row, len(rows))
	for i, row := range rows {
		if err := validateRow("keyValuePairList", row); err != nil {
			return "", err
		}
		if len(row) != len(reference) {
			return "", sqlerr.Usage("keyValuePairList", "row %d has %d keys, first row has %d; all rows must contain exactly the same keys", i, len(row), len(reference))
		}
		aligned := make(value.Row, len(names))
		for j, name := range names {
			v, ok := row.Get(name)
			if !ok {
				return "", sqlerr.Usage("keyValuePairList", "row %d is missing key %q; all rows must contain exactly the same keys", i, name)
			}
			aligned[j] = value.Field{Name: name, Value: v}
		}
		ordered[i] = aligned
	}

	tuples := make([]string, len(ordered))
	for i, row := range ordered {
		tuples[i] = b.tuple(row)
	}
	return "INSERT INTO " + encode.QuoteIdentifier(table) +
		" (" + columnList(names) + ") VALUES " + strings.Join(tuples, ", "), nil
}

// Update renders an UPDATE assigning every field of row. A nil filter
// updates every row.
func (b *Builder) Update(table string, row value.Row, f *filter.Expression) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if err := validateRow("keyValuePairs", row); err != nil {
		return "", err
	}
	where, err := filter.Where(b.enc, f)
	if err != nil {
		return "", err
	}
	assignments := make([]string, len(row))
	for i, field := range row {
		assignments[i] = encode.QuoteIdentifier(field.Name) + " = " + b.enc.Literal(field.Value)
	}
	return "UPDATE " + encode.QuoteIdentifier(table) + " SET " + strings.Join(assignments, ", ") + where, nil
}

// Delete renders a filtered DELETE. The filter is required.
func (b *Builder) Delete(table string, f *filter.Expression) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if f == nil {
		return "", sqlerr.Usage("filter", "DELETE requires a filter")
	}
	where, err := filter.Where(b.enc, f)
	if err != nil {
		return "", err
	}
	return "DELETE FROM " + encode.QuoteIdentifier(table) + where, nil
}

func (b *Builder) tuple(row value.Row) string {
	lits := make([]string, len(row))
	for i, field := range row {
		lits[i] = b.enc.Literal(field.Value)
	}
	return "(" + strings.Join(lits, ", ") + ")"
}

func columnList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = encode.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

func validateRow(param string, row value.Row) error {
	if len(row) == 0 {
		return sqlerr.Usage(param, "at least one key-value pair is required")
	}
	seen := make(map[string]bool, len(row))
	for _, field := range row {
		if field.Name == "" {
			return sqlerr.Usage(param, "empty column name")
		}
		if seen[field.Name] {
			return sqlerr.Usage(param, "duplicate column %q", field.Name)
		}
		seen[field.Name] = true
	}
	return nil
}

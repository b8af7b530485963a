// Package builder synthesizes MySQL statement text. Nothing in this package
// executes anything.
package builder

import (
	"strconv"
	"strings"

	"github.com/tordrt/dbwrapper/internal/encode"
	"github.com/tordrt/dbwrapper/internal/filter"
	"github.com/tordrt/dbwrapper/internal/schema"
	"github.com/tordrt/dbwrapper/internal/sqlerr"
	"github.com/tordrt/dbwrapper/internal/value"
)

const (
	// CountColumn and SumColumn alias the aggregate in COUNT and SUM queries.
	CountColumn = "__count__"
	SumColumn   = "__sum__"

	// MaxPacketProbe asks the server for its statement size ceiling.
	MaxPacketProbe = "SHOW VARIABLES LIKE 'max_allowed_packet'"

	// maxRows is the documented MySQL idiom for "no limit" when only an
	// offset is wanted.
	maxRows = "18446744073709551615"
)

// Builder renders statements using a fixed Encoder.
type Builder struct {
	enc *encode.Encoder
}

// New returns a Builder backed by enc.
func New(enc *encode.Encoder) *Builder {
	return &Builder{enc: enc}
}

// Encoder returns the encoder used for literals.
func (b *Builder) Encoder() *encode.Encoder { return b.enc }

// SelectQuery describes a SELECT. Zero values mean "not provided".
type SelectQuery struct {
	Table      string
	IndexStart int
	MaxResults int
	Fields     []string
	Filter     *filter.Expression
	Order      []schema.ResultOrder
}

// Select renders q.
func (b *Builder) Select(q SelectQuery) (string, error) {
	if err := requireTable(q.Table); err != nil {
		return "", err
	}
	if q.MaxResults < 0 {
		return "", sqlerr.Usage("maxResults", "must not be negative, got %d", q.MaxResults)
	}
	fields, err := fieldList(q.Fields)
	if err != nil {
		return "", err
	}
	where, err := filter.Where(b.enc, q.Filter)
	if err != nil {
		return "", err
	}
	order, err := orderBy(q.Order)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(fields)
	sb.WriteString(" FROM ")
	sb.WriteString(encode.QuoteIdentifier(q.Table))
	sb.WriteString(where)
	sb.WriteString(order)
	switch {
	case q.MaxResults > 0:
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.MaxResults))
	case q.IndexStart > 0:
		sb.WriteString(" LIMIT " + maxRows)
	}
	if q.IndexStart > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.IndexStart))
	}
	return sb.String(), nil
}

// SelectByKey renders a single-row lookup of column = v.
func (b *Builder) SelectByKey(table, column string, v value.Value) (string, error) {
	if column == "" {
		return "", sqlerr.Usage("columnName", "must not be empty")
	}
	return b.Select(SelectQuery{
		Table:      table,
		MaxResults: 1,
		Filter:     filter.Eq(column, v),
	})
}

// Exists renders a query returning at most one row matching f.
func (b *Builder) Exists(table string, f *filter.Expression) (string, error) {
	return b.Select(SelectQuery{Table: table, MaxResults: 1, Filter: f})
}

// Count renders a COUNT(*) aliased to CountColumn.
func (b *Builder) Count(table string, f *filter.Expression) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	where, err := filter.Where(b.enc, f)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) AS " + encode.QuoteIdentifier(CountColumn) +
		" FROM " + encode.QuoteIdentifier(table) + where, nil
}

// Sum renders a SUM(field) aliased to SumColumn.
func (b *Builder) Sum(table, field string, f *filter.Expression) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if field == "" {
		return "", sqlerr.Usage("fieldName", "must not be empty")
	}
	where, err := filter.Where(b.enc, f)
	if err != nil {
		return "", err
	}
	return "SELECT SUM(" + encode.QuoteIdentifier(field) + ") AS " + encode.QuoteIdentifier(SumColumn) +
		" FROM " + encode.QuoteIdentifier(table) + where, nil
}

func requireTable(table string) error {
	if table == "" {
		return sqlerr.Usage("tableName", "must not be empty")
	}
	return nil
}

func fieldList(fields []string) (string, error) {
	if len(fields) == 0 {
		return "*", nil
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		if f == "" {
			return "", sqlerr.Usage("returnFields", "field %d is empty", i)
		}
		quoted[i] = encode.QuoteIdentifier(f)
	}
	return strings.Join(quoted, ", "), nil
}

func orderBy(order []schema.ResultOrder) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, len(order))
	for i, o := range order {
		if o.Column == "" {
			return "", sqlerr.Usage("resultOrder", "entry %d has no column", i)
		}
		dir := "ASC"
		if o.Direction == schema.Descending {
			dir = "DESC"
		}
		parts[i] = encode.QuoteIdentifier(o.Column) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

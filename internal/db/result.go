package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tordrt/dbwrapper/internal/value"
)

// ResultColumn describes one column of a result set.
type ResultColumn struct {
	Name         string
	DatabaseType string
}

// ResultSet is a fully materialized query result. Rows keep the column
// order of the result.
type ResultSet struct {
	Columns []ResultColumn
	Rows    []value.Row
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result has no rows.
func (r *ResultSet) Empty() bool { return r.Len() == 0 }

// First returns the first row.
func (r *ResultSet) First() (value.Row, bool) {
	if r.Len() == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// ColumnNames returns the result's column names in order.
func (r *ResultSet) ColumnNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// materialize reads every row of rows, converting each cell using the
// column's declared database type.
func materialize(rows *sql.Rows) (*ResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	rs := &ResultSet{Columns: make([]ResultColumn, len(types))}
	for i, ct := range types {
		rs.Columns[i] = ResultColumn{Name: ct.Name(), DatabaseType: strings.ToUpper(ct.DatabaseTypeName())}
	}

	raw := make([]any, len(types))
	dest := make([]any, len(types))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(value.Row, len(types))
		for i, col := range rs.Columns {
			row[i] = value.Field{Name: col.Name, Value: convert(col.DatabaseType, raw[i])}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return rs, nil
}

// convert maps a scanned cell onto a Value. The declared type decides
// first; anything it cannot place falls back to the cell's Go type, and
// typed text that does not parse is kept as Text.
func convert(dbType string, cell any) value.Value {
	if cell == nil {
		return value.Null()
	}

	switch kindOf(dbType) {
	case value.KindInteger:
		switch c := cell.(type) {
		case []byte:
			return parseInteger(string(c))
		case string:
			return parseInteger(c)
		}
	case value.KindDecimal:
		switch c := cell.(type) {
		case []byte:
			return parseDecimal(string(c))
		case string:
			return parseDecimal(c)
		case float32:
			return value.Decimal(decimal.NewFromFloat32(c))
		case float64:
			return value.Decimal(decimal.NewFromFloat(c))
		}
	case value.KindTimestamp:
		switch c := cell.(type) {
		case []byte:
			return parseTimestamp(string(c))
		case string:
			return parseTimestamp(c)
		}
	}

	v, err := value.Of(cell)
	if err != nil {
		return value.Text(fmt.Sprint(cell))
	}
	return v
}

func kindOf(dbType string) value.Kind {
	t := strings.TrimPrefix(dbType, "UNSIGNED ")
	switch t {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return value.KindInteger
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL":
		return value.KindDecimal
	case "DATE", "DATETIME", "TIMESTAMP":
		return value.KindTimestamp
	default:
		return value.KindNull
	}
}

func parseInteger(s string) value.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return value.MustOf(u)
	}
	return value.Text(s)
}

func parseDecimal(s string) value.Value {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return value.Text(s)
	}
	return value.Decimal(d)
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func parseTimestamp(s string) value.Value {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return value.Timestamp(t)
		}
	}
	return value.Text(s)
}

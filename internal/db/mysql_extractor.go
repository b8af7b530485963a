package db

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/dbwrapper/internal/builder"
	"github.com/tordrt/dbwrapper/internal/schema"
	"github.com/tordrt/dbwrapper/internal/value"
)

// DefaultDescribeConcurrency bounds the per-table describes issued by
// DescribeDatabase.
const DefaultDescribeConcurrency = 4

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client      *MySQLClient
	builder     *builder.Builder
	schemaName  string
	concurrency int
}

// NewMySQLExtractor creates a new MySQL schema extractor. A concurrency
// below one selects DefaultDescribeConcurrency.
func NewMySQLExtractor(client *MySQLClient, b *builder.Builder, schemaName string, concurrency int) *MySQLExtractor {
	if concurrency < 1 {
		concurrency = DefaultDescribeConcurrency
	}
	return &MySQLExtractor{
		client:      client,
		builder:     b,
		schemaName:  schemaName,
		concurrency: concurrency,
	}
}

// ListTables returns the table names of the connected database.
func (e *MySQLExtractor) ListTables(ctx context.Context) ([]string, error) {
	rs, err := e.client.Query(ctx, e.builder.ShowTables())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]string, 0, rs.Len())
	for _, row := range rs.Rows {
		if len(row) == 0 || row[0].Value.IsNull() {
			continue
		}
		name := row[0].Value.String()
		if e.schemaName != "" {
			name = strings.TrimPrefix(name, e.schemaName+".")
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// TableExists reports whether table is one of ListTables, compared
// case-insensitively.
func (e *MySQLExtractor) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := e.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if strings.EqualFold(t, table) {
			return true, nil
		}
	}
	return false, nil
}

// DescribeTable returns the columns of table in declaration order. A name
// reported more than once keeps its first occurrence.
func (e *MySQLExtractor) DescribeTable(ctx context.Context, table string) ([]schema.Column, error) {
	stmt, err := e.builder.DescribeColumns(e.schemaName, table)
	if err != nil {
		return nil, err
	}
	rs, err := e.client.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	seen := make(map[string]bool, rs.Len())
	columns := make([]schema.Column, 0, rs.Len())
	for _, row := range rs.Rows {
		col := columnFromCatalog(row)
		if col.Name == "" || seen[col.Name] {
			continue
		}
		seen[col.Name] = true
		columns = append(columns, col)
	}
	return columns, nil
}

// DescribeDatabase describes every table. Tables are described
// concurrently; the first failure fails the whole call.
func (e *MySQLExtractor) DescribeDatabase(ctx context.Context) (map[string][]schema.Column, error) {
	tables, err := e.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	described := make([][]schema.Column, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			columns, err := e.DescribeTable(gctx, table)
			if err != nil {
				return err
			}
			described[i] = columns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string][]schema.Column, len(tables))
	for i, table := range tables {
		result[table] = described[i]
	}
	return result, nil
}

// PrimaryKeyColumn returns the first primary-key column of table. A table
// without one is not an error.
func (e *MySQLExtractor) PrimaryKeyColumn(ctx context.Context, table string) (string, bool, error) {
	columns, err := e.DescribeTable(ctx, table)
	if err != nil {
		return "", false, err
	}
	name, ok := schema.PrimaryKey(columns)
	return name, ok, nil
}

// columnFromCatalog maps one INFORMATION_SCHEMA.COLUMNS row.
func columnFromCatalog(row value.Row) schema.Column {
	col := schema.Column{
		Name: text(row, "COLUMN_NAME"),
		Type: schema.ParseDataType(text(row, "DATA_TYPE")),
	}

	if v, ok := field(row, "IS_NULLABLE"); ok {
		col.Nullable = strings.EqualFold(v.String(), "YES")
	} else if v, ok := field(row, "IS_NOT_NULLABLE"); ok {
		notNull, _ := flag(v)
		col.Nullable = !notNull
	}

	col.PrimaryKey = strings.EqualFold(text(row, "COLUMN_KEY"), "pri")

	if col.Type == schema.Decimal {
		col.MaxLength = positiveInt(row, "NUMERIC_PRECISION")
		col.Precision = nonNegativeInt(row, "NUMERIC_SCALE")
	} else {
		col.MaxLength = positiveInt(row, "CHARACTER_MAXIMUM_LENGTH")
	}
	return col
}

// field looks a catalog column up case-insensitively; servers differ in
// the case they report INFORMATION_SCHEMA names in.
func field(row value.Row, name string) (value.Value, bool) {
	for _, f := range row {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return value.Value{}, false
}

func text(row value.Row, name string) string {
	v, ok := field(row, name)
	if !ok || v.IsNull() {
		return ""
	}
	return v.String()
}

// flag reads a boolean stored as 1/0, true/false or yes/no.
func flag(v value.Value) (bool, bool) {
	if i, ok := v.AsInt(); ok {
		return i != 0, true
	}
	switch strings.ToLower(strings.TrimSpace(v.String())) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

func positiveInt(row value.Row, name string) *int {
	n := catalogInt(row, name)
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

func nonNegativeInt(row value.Row, name string) *int {
	n := catalogInt(row, name)
	if n == nil || *n < 0 {
		return nil
	}
	return n
}

// catalogInt never fails: a missing, null, non-numeric or out of range
// value yields nil.
func catalogInt(row value.Row, name string) *int {
	v, ok := field(row, name)
	if !ok || v.IsNull() {
		return nil
	}
	var n int64
	if i, ok := v.AsInt(); ok {
		n = i
	} else {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil
	}
	out := int(n)
	return &out
}

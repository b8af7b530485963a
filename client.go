package dbwrapper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tordrt/dbwrapper/internal/builder"
	"github.com/tordrt/dbwrapper/internal/encode"
	"github.com/tordrt/dbwrapper/internal/sqlerr"
	"github.com/tordrt/dbwrapper/internal/value"
)

// ListTables returns the names of the tables in the database.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	return c.extractor.ListTables(ctx)
}

// TableExists reports whether a table with the given name exists. Names are
// compared case-insensitively.
func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	if table == "" {
		return false, sqlerr.Usage("tableName", "must not be empty")
	}
	return c.extractor.TableExists(ctx, table)
}

// DescribeTable returns the columns of table in declaration order.
func (c *Client) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	return c.extractor.DescribeTable(ctx, table)
}

// DescribeDatabase returns the columns of every table, keyed by table name.
func (c *Client) DescribeDatabase(ctx context.Context) (map[string][]Column, error) {
	return c.extractor.DescribeDatabase(ctx)
}

// CreateTable creates table with the given columns. An integer primary key
// is created AUTO_INCREMENT.
func (c *Client) CreateTable(ctx context.Context, table string, columns []Column) error {
	stmt, err := c.builder.CreateTable(table, columns)
	if err != nil {
		return err
	}
	return c.exec(ctx, stmt)
}

// DropTable drops table. Dropping a missing table is not an error.
func (c *Client) DropTable(ctx context.Context, table string) error {
	stmt, err := c.builder.DropTable(table)
	if err != nil {
		return err
	}
	return c.exec(ctx, stmt)
}

// GetPrimaryKeyColumn returns the name of table's primary-key column. The
// boolean is false when the table has none.
func (c *Client) GetPrimaryKeyColumn(ctx context.Context, table string) (string, bool, error) {
	return c.extractor.PrimaryKeyColumn(ctx, table)
}

// GetColumnNames returns the column names of table in declaration order.
func (c *Client) GetColumnNames(ctx context.Context, table string) ([]string, error) {
	columns, err := c.extractor.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	return names, nil
}

// GetUniqueObjectByID returns the row of table whose column equals id. id
// may be any non-null value accepted by ValueOf.
func (c *Client) GetUniqueObjectByID(ctx context.Context, table, column string, id any) (*ResultSet, error) {
	if column == "" {
		return nil, sqlerr.Usage("columnName", "must not be empty")
	}
	v, err := value.Of(id)
	if err != nil {
		return nil, sqlerr.Usage("id", "%v", err)
	}
	if v.IsNull() {
		return nil, sqlerr.Usage("id", "must not be nil")
	}
	stmt, err := c.builder.SelectByKey(table, column, v)
	if err != nil {
		return nil, err
	}
	return c.conn.Query(ctx, stmt)
}

// Select returns rows of table matching f.
//
// Parameters:
//   - indexStart: rows to skip; zero or negative starts at the first row
//   - maxResults: row limit; zero means no limit
//   - fields: columns to return; empty returns every column
//   - f: filter; nil matches every row
//   - order: ORDER BY columns, applied in order
func (c *Client) Select(ctx context.Context, table string, indexStart, maxResults int, fields []string, f *Expression, order ...ResultOrder) (*ResultSet, error) {
	stmt, err := c.builder.Select(builder.SelectQuery{
		Table:      table,
		IndexStart: indexStart,
		MaxResults: maxResults,
		Fields:     fields,
		Filter:     f,
		Order:      order,
	})
	if err != nil {
		return nil, err
	}
	return c.conn.Query(ctx, stmt)
}

// Insert inserts row into table and returns the inserted row as stored.
//
// The row is re-selected using the generated key the server reports and the
// table's primary-key column. If no key was generated, or the table has no
// primary key, the insert still succeeds and the result is empty.
func (c *Client) Insert(ctx context.Context, table string, row Row) (*ResultSet, error) {
	stmt, err := c.builder.Insert(table, row)
	if err != nil {
		return nil, err
	}
	res, err := c.conn.Exec(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if res.LastInsertID == 0 {
		return &ResultSet{}, nil
	}

	pk, ok, err := c.extractor.PrimaryKeyColumn(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve primary key of %s: %w", table, err)
	}
	if !ok {
		return &ResultSet{}, nil
	}

	lookup, err := c.builder.SelectByKey(table, pk, value.Int(res.LastInsertID))
	if err != nil {
		return nil, err
	}
	return c.conn.Query(ctx, lookup)
}

// InsertMultiple inserts rows into table with a single statement, so either
// every row is inserted or none is. Every row must have the same columns.
func (c *Client) InsertMultiple(ctx context.Context, table string, rows []Row) error {
	stmt, err := c.builder.InsertMultiple(table, rows)
	if err != nil {
		return err
	}
	return c.exec(ctx, stmt)
}

// Update sets the fields of row on every row of table matching f. A nil
// filter updates every row.
func (c *Client) Update(ctx context.Context, table string, row Row, f *Expression) error {
	stmt, err := c.builder.Update(table, row, f)
	if err != nil {
		return err
	}
	return c.exec(ctx, stmt)
}

// Delete removes the rows of table matching f. The filter is required; use
// Truncate to empty a table.
func (c *Client) Delete(ctx context.Context, table string, f *Expression) error {
	stmt, err := c.builder.Delete(table, f)
	if err != nil {
		return err
	}
	return c.exec(ctx, stmt)
}

// Truncate removes every row of table.
func (c *Client) Truncate(ctx context.Context, table string) error {
	stmt, err := c.builder.Truncate(table)
	if err != nil {
		return err
	}
	return c.exec(ctx, stmt)
}

// Query runs caller-supplied SQL and materializes its result. The text is
// sent as is; use Sanitize for any value embedded in it.
func (c *Client) Query(ctx context.Context, query string) (*ResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, sqlerr.Usage("query", "must not be empty")
	}
	return c.conn.Query(ctx, query)
}

// Exists reports whether any row of table matches f.
func (c *Client) Exists(ctx context.Context, table string, f *Expression) (bool, error) {
	stmt, err := c.builder.Exists(table, f)
	if err != nil {
		return false, err
	}
	rs, err := c.conn.Query(ctx, stmt)
	if err != nil {
		return false, err
	}
	return rs.Len() > 0, nil
}

// Count returns the number of rows of table matching f.
func (c *Client) Count(ctx context.Context, table string, f *Expression) (int64, error) {
	stmt, err := c.builder.Count(table, f)
	if err != nil {
		return 0, err
	}
	rs, err := c.conn.Query(ctx, stmt)
	if err != nil {
		return 0, err
	}
	cell, ok := aggregate(rs, builder.CountColumn)
	if !ok {
		return 0, nil
	}
	if n, ok := cell.AsInt(); ok {
		return n, nil
	}
	d, err := decimalOf(cell)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", builder.CountColumn, err)
	}
	return d.IntPart(), nil
}

// Sum returns the sum of field over the rows of table matching f. No
// matching rows sum to zero.
func (c *Client) Sum(ctx context.Context, table, field string, f *Expression) (decimal.Decimal, error) {
	stmt, err := c.builder.Sum(table, field, f)
	if err != nil {
		return decimal.Zero, err
	}
	rs, err := c.conn.Query(ctx, stmt)
	if err != nil {
		return decimal.Zero, err
	}
	cell, ok := aggregate(rs, builder.SumColumn)
	if !ok {
		return decimal.Zero, nil
	}
	d, err := decimalOf(cell)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read %s: %w", builder.SumColumn, err)
	}
	return d, nil
}

// Sanitize escapes s for embedding inside a quoted literal in hand-written
// SQL passed to Query. The result carries no surrounding quotes.
func (c *Client) Sanitize(s string) string {
	return encode.Sanitize(s)
}

// Timestamp renders t with the client's timestamp layout, unquoted.
func (c *Client) Timestamp(t time.Time) string {
	return c.builder.Encoder().Timestamp(t)
}

// MaxStatementLength returns the statement ceiling in bytes, asking the
// server on first use when no override is configured.
func (c *Client) MaxStatementLength(ctx context.Context) int {
	return c.conn.MaxStatementLength(ctx)
}

// ConnectionString returns the driver DSN for the client's settings.
func (c *Client) ConnectionString() string {
	return c.settings.DSN()
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) exec(ctx context.Context, stmt string) error {
	_, err := c.conn.Exec(ctx, stmt)
	return err
}

// aggregate returns the named cell of the first row, if present and not null.
func aggregate(rs *ResultSet, column string) (Value, bool) {
	row, ok := rs.First()
	if !ok {
		return Value{}, false
	}
	v, ok := row.Get(column)
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

func decimalOf(v Value) (decimal.Decimal, error) {
	if d, ok := v.AsDecimal(); ok {
		return d, nil
	}
	if s, ok := v.AsText(); ok {
		return decimal.NewFromString(strings.TrimSpace(s))
	}
	return decimal.Zero, fmt.Errorf("unexpected %s value", v.Kind())
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"

	"github.com/tordrt/dbwrapper/internal/builder"
	"github.com/tordrt/dbwrapper/internal/sqlerr"
)

const (
	// DefaultMaxStatementLength is the statement ceiling in bytes used until,
	// or instead of, the server's max_allowed_packet.
	DefaultMaxStatementLength = 4194304

	logHeader = "[dbwrapper] "
)

// Options configures a MySQLClient.
type Options struct {
	// Logger receives query and result lines. Nil disables logging.
	Logger     func(string)
	LogQueries bool
	LogResults bool
	// MaxStatementLength overrides the statement ceiling. Zero asks the
	// server once, on first use.
	MaxStatementLength int
}

// ExecResult is what the server reports for a statement that returns no rows.
type ExecResult struct {
	RowsAffected int64
	// LastInsertID is the generated key, or 0 when none was reported.
	LastInsertID int64
}

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db   *sql.DB
	opts Options

	limitOnce sync.Once
	limit     int
}

// NewMySQLClient opens and pings a MySQL database
func NewMySQLClient(ctx context.Context, connString string, opts Options) (*MySQLClient, error) {
	db, err := sql.Open("mysql", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewMySQLClientWithDB(db, opts), nil
}

// NewMySQLClientWithDB wraps an already opened database.
func NewMySQLClientWithDB(db *sql.DB, opts Options) *MySQLClient {
	return &MySQLClient{db: db, opts: opts}
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// Query runs a row-returning statement on a dedicated session and
// materializes the full result.
func (c *MySQLClient) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	if err := c.check(ctx, stmt); err != nil {
		return nil, err
	}
	return c.query(ctx, stmt)
}

// Exec runs a statement that returns no rows on a dedicated session.
func (c *MySQLClient) Exec(ctx context.Context, stmt string) (*ExecResult, error) {
	if err := c.check(ctx, stmt); err != nil {
		return nil, err
	}
	c.logQuery(stmt)

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, &sqlerr.StatementError{Statement: stmt, Err: fmt.Errorf("failed to acquire connection: %w", err)}
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, stmt)
	if err != nil {
		return nil, &sqlerr.StatementError{Statement: stmt, Err: err}
	}

	out := &ExecResult{}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	c.logResult(out.RowsAffected)
	return out, nil
}

// MaxStatementLength returns the statement ceiling in bytes, asking the
// server on first use when no override is configured.
func (c *MySQLClient) MaxStatementLength(ctx context.Context) int {
	c.limitOnce.Do(func() {
		c.limit = c.resolveLimit(ctx)
	})
	return c.limit
}

func (c *MySQLClient) check(ctx context.Context, stmt string) error {
	if limit := c.MaxStatementLength(ctx); len(stmt) > limit {
		return &sqlerr.SizeLimitError{Limit: limit, Length: len(stmt)}
	}
	return nil
}

func (c *MySQLClient) resolveLimit(ctx context.Context) int {
	if c.opts.MaxStatementLength > 0 {
		return c.opts.MaxStatementLength
	}

	// The probe goes straight to query so it is not itself length checked.
	rs, err := c.query(ctx, builder.MaxPacketProbe)
	if err != nil {
		c.logf("max_allowed_packet probe failed, using %d: %v", DefaultMaxStatementLength, err)
		return DefaultMaxStatementLength
	}
	row, ok := rs.First()
	if !ok {
		c.logf("max_allowed_packet not reported, using %d", DefaultMaxStatementLength)
		return DefaultMaxStatementLength
	}
	v, ok := row.Get("Value")
	if !ok && len(row) > 1 {
		v = row[1].Value
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.String()))
	if err != nil || n <= 0 {
		c.logf("max_allowed_packet value %q is not usable, using %d", v.String(), DefaultMaxStatementLength)
		return DefaultMaxStatementLength
	}
	return n
}

func (c *MySQLClient) query(ctx context.Context, stmt string) (*ResultSet, error) {
	c.logQuery(stmt)

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, &sqlerr.StatementError{Statement: stmt, Err: fmt.Errorf("failed to acquire connection: %w", err)}
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &sqlerr.StatementError{Statement: stmt, Err: err}
	}
	defer rows.Close()

	rs, err := materialize(rows)
	if err != nil {
		return nil, &sqlerr.StatementError{Statement: stmt, Err: err}
	}
	c.logResult(int64(rs.Len()))
	return rs, nil
}

func (c *MySQLClient) logQuery(stmt string) {
	if c.opts.LogQueries {
		c.logf("query: %s", stmt)
	}
}

func (c *MySQLClient) logResult(n int64) {
	if c.opts.LogResults {
		c.logf("result: %d rows", n)
	}
}

func (c *MySQLClient) logf(format string, args ...any) {
	if c.opts.Logger == nil {
		return
	}
	c.opts.Logger(logHeader + fmt.Sprintf(format, args...))
}

package dbwrapper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const describeUsers = "SELECT * FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = 'users' " +
	"AND TABLE_SCHEMA = 'shop' ORDER BY ORDINAL_POSITION"

func newTestClient(t *testing.T, opts *Options) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if opts == nil {
		opts = &Options{}
	}
	if opts.MaxStatementLength == 0 {
		opts.MaxStatementLength = 1 << 20
	}
	settings := &Settings{Host: "localhost", Port: 3306, User: "app", Database: "shop", DescribeConcurrency: 1}
	return NewWithDB(sqlDB, settings, opts), mock
}

// mockRows builds rows with column metadata from "name:TYPE" definitions. The
// type defaults to VARCHAR.
func mockRows(mock sqlmock.Sqlmock, defs ...string) *sqlmock.Rows {
	cols := make([]*sqlmock.Column, len(defs))
	for i, def := range defs {
		name, typ, _ := strings.Cut(def, ":")
		if typ == "" {
			typ = "VARCHAR"
		}
		cols[i] = mock.NewColumn(name).OfType(typ, "")
	}
	return mock.NewRowsWithColumnDefinition(cols...)
}

func usersCatalog(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mockRows(mock, "COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_KEY").
		AddRow("id", "int", "NO", "PRI").
		AddRow("email", "varchar", "NO", "").
		AddRow("name", "varchar", "YES", "")
}

func TestInsertReturnsStoredRow(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO `users` (`email`, `name`) VALUES ('ada@example.com', 'Ada')").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(describeUsers).WillReturnRows(usersCatalog(mock))
	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` = 7 LIMIT 1").WillReturnRows(
		mockRows(mock, "id:INT", "email", "name").AddRow(int64(7), "ada@example.com", "Ada"),
	)

	rs, err := client.Insert(ctx, "users", MustRow("email", "ada@example.com", "name", "Ada"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	row, ok := rs.First()
	require.True(t, ok)
	id, _ := row.Get("id")
	assert.True(t, Int(7).Equal(id))
}

func TestInsertWithoutGeneratedKey(t *testing.T) {
	client, mock := newTestClient(t, nil)

	mock.ExpectExec("INSERT INTO `tags` (`name`) VALUES ('go')").WillReturnResult(sqlmock.NewResult(0, 1))

	rs, err := client.Insert(context.Background(), "tags", MustRow("name", "go"))
	require.NoError(t, err)
	assert.True(t, rs.Empty())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWithoutPrimaryKey(t *testing.T) {
	client, mock := newTestClient(t, nil)

	mock.ExpectExec("INSERT INTO `users` (`email`) VALUES ('x@y.z')").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(describeUsers).WillReturnRows(
		mockRows(mock, "COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_KEY").AddRow("email", "varchar", "NO", ""),
	)

	rs, err := client.Insert(context.Background(), "users", MustRow("email", "x@y.z"))
	require.NoError(t, err)
	assert.True(t, rs.Empty())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMultiple(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO `t` (`a`, `b`) VALUES (1, 2), (3, 4)").WillReturnResult(sqlmock.NewResult(0, 2))
	err := client.InsertMultiple(ctx, "t", []Row{MustRow("a", 1, "b", 2), MustRow("a", 3, "b", 4)})
	require.NoError(t, err)

	err = client.InsertMultiple(ctx, "t", []Row{MustRow("a", 1), MustRow("a", 1, "b", 2)})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "keyValuePairList", usage.Param)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteStatements(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	mock.ExpectExec("UPDATE `users` SET `name` = N'Zoë' WHERE `id` = 2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `users` WHERE `email` LIKE '%@spam.io'").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("TRUNCATE TABLE `logs`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS `logs`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE `logs` (`id` bigint NOT NULL AUTO_INCREMENT, `line` longtext NULL, " +
		"PRIMARY KEY (`id`)) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, client.Update(ctx, "users", MustRow("name", "Zoë"), Eq("id", Int(2))))
	require.NoError(t, client.Delete(ctx, "users", HasSuffix("email", "@spam.io")))
	require.NoError(t, client.Truncate(ctx, "logs"))
	require.NoError(t, client.DropTable(ctx, "logs"))
	require.NoError(t, client.CreateTable(ctx, "logs", []Column{
		{Name: "id", Type: TypeLong, PrimaryKey: true},
		{Name: "line", Type: TypeText, Nullable: true},
	}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRequiresFilter(t *testing.T) {
	client, mock := newTestClient(t, nil)

	err := client.Delete(context.Background(), "users", nil)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "filter", usage.Param)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect(t *testing.T) {
	client, mock := newTestClient(t, nil)

	mock.ExpectQuery("SELECT `id`, `email` FROM `users` WHERE `deleted_at` IS NULL ORDER BY `id` DESC LIMIT 5 OFFSET 10").
		WillReturnRows(mockRows(mock, "id:INT", "email").AddRow(int64(1), "a@b.c"))

	rs, err := client.Select(context.Background(), "users", 10, 5, []string{"id", "email"},
		Eq("deleted_at", Null()), ResultOrder{Column: "id", Direction: Descending})
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, []string{"id", "email"}, rs.ColumnNames())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` = 1 LIMIT 1").
		WillReturnRows(mockRows(mock, "id:INT").AddRow(int64(1)))
	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` = 2 LIMIT 1").
		WillReturnRows(mockRows(mock, "id:INT"))

	ok, err := client.Exists(ctx, "users", Eq("id", Int(1)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists(ctx, "users", Eq("id", Int(2)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCountAndSum(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT(*) AS `__count__` FROM `orders`").
		WillReturnRows(mockRows(mock, "__count__:BIGINT").AddRow(int64(0)))
	mock.ExpectQuery("SELECT COUNT(*) AS `__count__` FROM `orders` WHERE `total` > 10").
		WillReturnRows(mockRows(mock, "__count__:BIGINT").AddRow("12"))
	mock.ExpectQuery("SELECT SUM(`total`) AS `__sum__` FROM `orders`").
		WillReturnRows(mockRows(mock, "__sum__:DECIMAL").AddRow(nil))
	mock.ExpectQuery("SELECT SUM(`total`) AS `__sum__` FROM `orders` WHERE `state` = 'paid'").
		WillReturnRows(mockRows(mock, "__sum__:DECIMAL").AddRow("1234.50"))

	n, err := client.Count(ctx, "orders", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = client.Count(ctx, "orders", Gt("total", Int(10)))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	sum, err := client.Sum(ctx, "orders", "total", nil)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	sum, err = client.Sum(ctx, "orders", "total", Eq("state", Text("paid")))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(sum))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementLengthLimit(t *testing.T) {
	stmt := "SELECT * FROM `users`"
	client, mock := newTestClient(t, &Options{MaxStatementLength: len(stmt)})
	ctx := context.Background()

	mock.ExpectQuery(stmt).WillReturnRows(mockRows(mock, "id:INT"))
	_, err := client.Query(ctx, stmt)
	require.NoError(t, err)

	_, err = client.Query(ctx, stmt+";")
	var sizeErr *SizeLimitError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, len(stmt), sizeErr.Limit)
	assert.Equal(t, len(stmt), client.MaxStatementLength(ctx))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospection(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	mock.ExpectQuery("SHOW TABLES").WillReturnRows(mockRows(mock, "Tables_in_shop").AddRow("users"))
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(mockRows(mock, "Tables_in_shop").AddRow("users"))
	mock.ExpectQuery(describeUsers).WillReturnRows(usersCatalog(mock))
	mock.ExpectQuery(describeUsers).WillReturnRows(usersCatalog(mock))
	mock.ExpectQuery(describeUsers).WillReturnRows(usersCatalog(mock))

	tables, err := client.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	exists, err := client.TableExists(ctx, "USERS")
	require.NoError(t, err)
	assert.True(t, exists)

	columns, err := client.DescribeTable(ctx, "users")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.True(t, columns[0].PrimaryKey)
	assert.True(t, columns[2].Nullable)

	names, err := client.GetColumnNames(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email", "name"}, names)

	pk, ok, err := client.GetPrimaryKeyColumn(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "id", pk)

	require.NoError(t, mock.ExpectationsWereMet())

	_, err = client.TableExists(ctx, "")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestGetUniqueObjectByID(t *testing.T) {
	client, mock := newTestClient(t, nil)

	mock.ExpectQuery("SELECT * FROM `users` WHERE `email` = 'a@b.c' LIMIT 1").
		WillReturnRows(mockRows(mock, "id:INT", "email").AddRow(int64(4), "a@b.c"))

	rs, err := client.GetUniqueObjectByID(context.Background(), "users", "email", "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())

	_, err = client.GetUniqueObjectByID(context.Background(), "users", "id", struct{}{})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)

	var missing *string
	for _, id := range []any{nil, missing, Null()} {
		_, err = client.GetUniqueObjectByID(context.Background(), "users", "id", id)
		require.ErrorAs(t, err, &usage)
		assert.Equal(t, "id", usage.Param)
	}

	_, err = client.GetUniqueObjectByID(context.Background(), "users", "", 1)
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "columnName", usage.Param)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrors(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.Query(ctx, "   ")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)

	mock.ExpectQuery("SELECT nope").WillReturnError(errors.New("syntax error"))
	_, err = client.Query(ctx, "SELECT nope")
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "SELECT nope", stmtErr.Statement)
}

func TestLoggingThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	client, mock := newTestClient(t, &Options{
		Logger:     SlogSink(logger),
		LogQueries: true,
		LogResults: true,
	})

	mock.ExpectQuery("SELECT * FROM `users` LIMIT 1").WillReturnRows(mockRows(mock, "id:INT").AddRow(int64(1)))
	_, err := client.Select(context.Background(), "users", 0, 1, nil, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[dbwrapper] query: SELECT * FROM `users` LIMIT 1")
	assert.Contains(t, out, "[dbwrapper] result: 1 rows")
	assert.Nil(t, SlogSink(nil))
}

func TestFormattingHelpers(t *testing.T) {
	client, _ := newTestClient(t, &Options{TimestampFormat: time.RFC3339})

	ts := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-29T12:00:00Z", client.Timestamp(ts))
	assert.Equal(t, `it''s a \"test\"\n`, client.Sanitize("it's a \"test\"\n"))
	assert.Equal(t, "app@tcp(localhost:3306)/shop?parseTime=true", client.ConnectionString())
}

func TestSettingsFromURL(t *testing.T) {
	s, err := SettingsFromURL("mysql://app:pw@tcp(db.internal:3307)/shop")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", s.Host)
	assert.Equal(t, 3307, s.Port)
	assert.Equal(t, "app", s.User)
	assert.Equal(t, "pw", s.Password)
	assert.Equal(t, "shop", s.Database)

	_, err = SettingsFromURL("postgres://localhost/db")
	assert.Error(t, err)

	_, err = SettingsFromURL("")
	assert.Error(t, err)
}

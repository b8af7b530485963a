package builder

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbwrapper/internal/encode"
	"github.com/tordrt/dbwrapper/internal/schema"
	"github.com/tordrt/dbwrapper/internal/sqlerr"
)

const defaultVarcharLength = 255

// CreateTable renders a CREATE TABLE for columns. A single primary-key
// column is declared with a trailing PRIMARY KEY clause; an integer primary
// key additionally gets AUTO_INCREMENT so inserts report a generated id.
func (b *Builder) CreateTable(table string, columns []schema.Column) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", sqlerr.Usage("columns", "at least one column is required")
	}

	seen := make(map[string]bool, len(columns))
	defs := make([]string, 0, len(columns)+1)
	var primaryKey string
	for i, col := range columns {
		if col.Name == "" {
			return "", sqlerr.Usage("columns", "column %d has no name", i)
		}
		if seen[col.Name] {
			return "", sqlerr.Usage("columns", "duplicate column %q", col.Name)
		}
		seen[col.Name] = true

		native, err := nativeType(col)
		if err != nil {
			return "", err
		}

		def := encode.QuoteIdentifier(col.Name) + " " + native
		if col.Nullable && !col.PrimaryKey {
			def += " NULL"
		} else {
			def += " NOT NULL"
		}
		if col.PrimaryKey {
			if primaryKey != "" {
				return "", sqlerr.Usage("columns", "more than one primary key column (%q, %q)", primaryKey, col.Name)
			}
			primaryKey = col.Name
			if col.Type.Integer() {
				def += " AUTO_INCREMENT"
			}
		}
		defs = append(defs, def)
	}
	if primaryKey != "" {
		defs = append(defs, "PRIMARY KEY ("+encode.QuoteIdentifier(primaryKey)+")")
	}

	return "CREATE TABLE " + encode.QuoteIdentifier(table) + " (" + strings.Join(defs, ", ") +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", nil
}

// DropTable renders a DROP TABLE that tolerates a missing table.
func (b *Builder) DropTable(table string) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	return "DROP TABLE IF EXISTS " + encode.QuoteIdentifier(table), nil
}

// Truncate renders a TRUNCATE TABLE.
func (b *Builder) Truncate(table string) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	return "TRUNCATE TABLE " + encode.QuoteIdentifier(table), nil
}

// ShowTables lists the tables of the connected database.
func (b *Builder) ShowTables() string {
	return "SHOW TABLES"
}

// DescribeColumns renders the catalog query for a table's columns in
// declaration order.
func (b *Builder) DescribeColumns(database, table string) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	return "SELECT * FROM INFORMATION_SCHEMA.COLUMNS" +
		" WHERE TABLE_NAME = " + encode.TextLiteral(table) +
		" AND TABLE_SCHEMA = " + encode.TextLiteral(database) +
		" ORDER BY ORDINAL_POSITION", nil
}

func nativeType(col schema.Column) (string, error) {
	switch col.Type {
	case schema.Varchar:
		return fmt.Sprintf("varchar(%d)", length(col.MaxLength)), nil
	case schema.Nvarchar:
		return fmt.Sprintf("nvarchar(%d)", length(col.MaxLength)), nil
	case schema.Text:
		return "longtext", nil
	case schema.TinyInt:
		return "tinyint", nil
	case schema.Int:
		return "int", nil
	case schema.Long:
		return "bigint", nil
	case schema.Decimal:
		if col.MaxLength == nil {
			return "decimal", nil
		}
		scale := 0
		if col.Precision != nil {
			scale = *col.Precision
		}
		if *col.MaxLength < 1 || scale < 0 || scale > *col.MaxLength {
			return "", sqlerr.Usage("columns", "column %q has invalid decimal precision (%d,%d)", col.Name, *col.MaxLength, scale)
		}
		return fmt.Sprintf("decimal(%d,%d)", *col.MaxLength, scale), nil
	case schema.Double:
		return "double", nil
	case schema.DateTime:
		return "datetime(6)", nil
	case schema.DateTimeOffset:
		return "timestamp(6)", nil
	case schema.Blob:
		return "longblob", nil
	case schema.Boolean:
		return "tinyint(1)", nil
	case schema.Guid:
		return "varchar(36)", nil
	default:
		return "", sqlerr.Usage("columns", "column %q has unsupported type %q", col.Name, col.Type)
	}
}

func length(n *int) int {
	if n == nil || *n <= 0 {
		return defaultVarcharLength
	}
	return *n
}

package schema

import "strings"

// DataType is the semantic type of a column, independent of the native
// MySQL spelling.
type DataType string

const (
	Varchar        DataType = "varchar"
	Nvarchar       DataType = "nvarchar"
	Text           DataType = "text"
	TinyInt        DataType = "tinyint"
	Int            DataType = "int"
	Long           DataType = "long"
	Decimal        DataType = "decimal"
	Double         DataType = "double"
	DateTime       DataType = "datetime"
	DateTimeOffset DataType = "datetimeoffset"
	Blob           DataType = "blob"
	Boolean        DataType = "boolean"
	Guid           DataType = "guid"
	Unknown        DataType = "unknown"
)

// ParseDataType maps a catalog DATA_TYPE value onto a DataType. Types with
// no semantic equivalent map to Unknown.
func ParseDataType(s string) DataType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "varchar", "char", "enum", "set":
		return Varchar
	case "nvarchar", "nchar", "national varchar":
		return Nvarchar
	case "text", "tinytext", "mediumtext", "longtext", "json":
		return Text
	case "tinyint":
		return TinyInt
	case "smallint", "mediumint", "int", "integer", "year":
		return Int
	case "bigint":
		return Long
	case "decimal", "numeric":
		return Decimal
	case "double", "float", "real":
		return Double
	case "datetime", "date", "time":
		return DateTime
	case "timestamp":
		return DateTimeOffset
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return Blob
	case "bool", "boolean", "bit":
		return Boolean
	case "uuid", "guid":
		return Guid
	default:
		return Unknown
	}
}

// Integer reports whether t is an integral type eligible for AUTO_INCREMENT.
func (t DataType) Integer() bool {
	return t == TinyInt || t == Int || t == Long
}

// Column represents a table column
type Column struct {
	Name       string
	Type       DataType
	MaxLength  *int // bounded text types, or decimal precision
	Precision  *int // decimal scale
	Nullable   bool
	PrimaryKey bool
}

// PrimaryKey returns the first primary-key column, the one used for
// single-column retrieval.
func PrimaryKey(columns []Column) (string, bool) {
	for _, c := range columns {
		if c.PrimaryKey {
			return c.Name, true
		}
	}
	return "", false
}

// Names returns the column names in order.
func Names(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// Direction is a sort direction for ORDER BY.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ResultOrder orders results by one column.
type ResultOrder struct {
	Column    string
	Direction Direction
}

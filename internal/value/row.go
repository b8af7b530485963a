package value

import "fmt"

// Field is a single named value within a Row.
type Field struct {
	Name  string
	Value Value
}

// Row is an ordered mapping from column name to Value. Order is preserved
// between the emitted key list and value list.
type Row []Field

// RowOf builds a Row from alternating name/value pairs, inferring each
// value with Of.
//
//	row, err := value.RowOf("name", "alice", "age", 31)
func RowOf(pairs ...any) (Row, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("value: odd number of arguments to RowOf")
	}
	row := make(Row, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("value: argument %d must be a column name, got %T", i, pairs[i])
		}
		v, err := Of(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("value: column %s: %w", name, err)
		}
		row = append(row, Field{Name: name, Value: v})
	}
	return row, nil
}

// MustRow is like RowOf but panics on error.
func MustRow(pairs ...any) Row {
	row, err := RowOf(pairs...)
	if err != nil {
		panic(err)
	}
	return row
}

// Set replaces the value of an existing column or appends a new one.
func (r Row) Set(name string, v Value) Row {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = v
			return r
		}
	}
	return append(r, Field{Name: name, Value: v})
}

// Get returns the value for name.
func (r Row) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Package value holds the tagged value variant used for row data, filter
// operands and materialized results.
package value

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies which member of the variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindDecimal
	KindText
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one of {Null, Integer, Decimal, Text, Timestamp}. The zero Value
// is Null.
type Value struct {
	kind Kind
	i    int64
	d    decimal.Decimal
	s    string
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Decimal returns a decimal value.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInteger }

// AsDecimal returns the decimal held by v. Integers are widened.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindDecimal:
		return v.d, true
	case KindInteger:
		return decimal.NewFromInt(v.i), true
	}
	return decimal.Zero, false
}

// AsText returns the string held by v.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsTime returns the timestamp held by v.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTimestamp }

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == o.i
	case KindDecimal:
		return v.d.Equal(o.d)
	case KindText:
		return v.s == o.s
	case KindTimestamp:
		return v.t.Equal(o.t)
	}
	return false
}

// String renders v for diagnostics. It is not SQL-safe.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindDecimal:
		return v.d.String()
	case KindText:
		return v.s
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("<%s>", v.kind)
}

// Of infers a Value from a native Go value. It is meant to be called once at
// the boundary; unsupported types are an error.
func Of(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t), nil
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return Value{}, fmt.Errorf("value: cannot encode non-finite float %v", t)
		}
		return Decimal(decimal.NewFromFloat32(t)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("value: cannot encode non-finite float %v", t)
		}
		return Decimal(decimal.NewFromFloat(t)), nil
	case decimal.Decimal:
		return Decimal(t), nil
	case *decimal.Decimal:
		if t == nil {
			return Null(), nil
		}
		return Decimal(*t), nil
	case bool:
		if t {
			return Int(1), nil
		}
		return Int(0), nil
	case string:
		return Text(t), nil
	case *string:
		if t == nil {
			return Null(), nil
		}
		return Text(*t), nil
	case []byte:
		if t == nil {
			return Null(), nil
		}
		return Text(string(t)), nil
	case time.Time:
		return Timestamp(t), nil
	case *time.Time:
		if t == nil {
			return Null(), nil
		}
		return Timestamp(*t), nil
	case uuid.UUID:
		return Text(t.String()), nil
	case fmt.Stringer:
		return Text(t.String()), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", x)
	}
}

// MustOf is like Of but panics on unsupported types.
func MustOf(x any) Value {
	v, err := Of(x)
	if err != nil {
		panic(err)
	}
	return v
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Decimal(decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0))
	}
	return Int(int64(u))
}

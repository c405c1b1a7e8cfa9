package model

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a typed entity attribute used by condition evaluation.
// The zero value is Null.
type Value struct {
	kind   Kind
	number decimal.Decimal
	text   string
	flag   bool
}

// Attributes is a flattened, adapter-defined view of a business entity.
type Attributes map[string]Value

// Null returns the missing/absent value.
func Null() Value { return Value{} }

// Number wraps an exact decimal.
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, number: d} }

// Int wraps an integer.
func Int(i int64) Value { return Number(decimal.NewFromInt(i)) }

// Float wraps a float using its shortest round-trip representation, so 0.1 stays 0.1.
func Float(f float64) Value { return Number(decimal.NewFromFloat(f)) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// ParseNumber parses a decimal literal such as "50000" or "1234.56".
func ParseNumber(literal string) (Value, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(literal))
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", literal, err)
	}
	return Number(d), nil
}

// ValueOf converts a loosely typed Go value (as decoded from JSON or YAML) into a Value.
// Unsupported types map to Null.
func ValueOf(v interface{}) Value {
	switch actual := v.(type) {
	case nil:
		return Null()
	case Value:
		return actual
	case decimal.Decimal:
		return Number(actual)
	case *decimal.Decimal:
		if actual == nil {
			return Null()
		}
		return Number(*actual)
	case string:
		return String(actual)
	case bool:
		return Bool(actual)
	case int:
		return Int(int64(actual))
	case int32:
		return Int(int64(actual))
	case int64:
		return Int(actual)
	case uint:
		return Number(decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(actual)), 0))
	case uint32:
		return Int(int64(actual))
	case uint64:
		return Number(decimal.NewFromBigInt(new(big.Int).SetUint64(actual), 0))
	case float32:
		return Number(decimal.NewFromFloat32(actual))
	case float64:
		return Float(actual)
	case fmt.Stringer:
		return String(actual.String())
	}
	return Null()
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Decimal returns the number and true when v is a Number, or a string holding a decimal literal.
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.number, true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.text))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// Text returns the string payload and true when v is a String.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.text, true
}

// Truth returns the boolean payload and true when v is a Bool.
func (v Value) Truth() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// Interface returns the natural Go representation (decimal numbers are returned as strings to keep precision).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.number.String()
	case KindString:
		return v.text
	case KindBool:
		return v.flag
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.number.String()
	case KindString:
		return strconv.Quote(v.text)
	case KindBool:
		return strconv.FormatBool(v.flag)
	}
	return "null"
}

// Lookup returns the value under key, or Null when absent.
func (a Attributes) Lookup(key string) Value {
	if a == nil {
		return Null()
	}
	v, ok := a[key]
	if !ok {
		return Null()
	}
	return v
}

// Clone returns a shallow copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	ret := make(Attributes, len(a))
	for k, v := range a {
		ret[k] = v
	}
	return ret
}

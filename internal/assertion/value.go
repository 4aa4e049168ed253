package assertion

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ohler55/ojg/oj"
)

// ValueKind discriminates expected values.
type ValueKind int

const (
	NullValue ValueKind = iota
	StringValue
	NumberValue
	IntegerValue
	BooleanValue
)

// Value is the expected operand of an assertion.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Int  int64
	Bool bool
}

func String(s string) Value  { return Value{Kind: StringValue, Str: s} }
func Number(f float64) Value { return Value{Kind: NumberValue, Num: f} }
func Integer(i int64) Value  { return Value{Kind: IntegerValue, Int: i} }
func Boolean(b bool) Value   { return Value{Kind: BooleanValue, Bool: b} }
func Null() Value            { return Value{Kind: NullValue} }

// ValueOf converts a decoded configuration scalar (YAML, JSON, env) into a
// Value. Whole-number floats stay Number so "1.0" keeps float semantics.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Boolean(x), nil
	case int:
		return Integer(int64(x)), nil
	case int8:
		return Integer(int64(x)), nil
	case int16:
		return Integer(int64(x)), nil
	case int32:
		return Integer(int64(x)), nil
	case int64:
		return Integer(x), nil
	case uint:
		return Integer(int64(x)), nil
	case uint8:
		return Integer(int64(x)), nil
	case uint16:
		return Integer(int64(x)), nil
	case uint32:
		return Integer(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Number(float64(x)), nil
		}
		return Integer(int64(x)), nil
	case float32:
		return Number(float64(x)), nil
	case float64:
		return Number(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported expected value type %T", v)
	}
}

// String renders the value the way it appears in assertion messages.
// Strings are quoted.
func (v Value) String() string {
	switch v.Kind {
	case StringValue:
		return `"` + v.Str + `"`
	case NumberValue:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case IntegerValue:
		return strconv.FormatInt(v.Int, 10)
	case BooleanValue:
		return strconv.FormatBool(v.Bool)
	default:
		return "null"
	}
}

func (v Value) numeric() (float64, bool) {
	switch v.Kind {
	case NumberValue:
		return v.Num, true
	case IntegerValue:
		return float64(v.Int), true
	}
	return 0, false
}

// formatActual renders a resolved value without quoting.
func formatActual(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return oj.JSON(x)
	}
}

// toFloat reports the numeric value of a resolved operand.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	}
	return 0, false
}

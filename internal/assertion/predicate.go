package assertion

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Predicate is the comparison applied to a resolved value.
type Predicate int

const (
	Equals Predicate = iota + 1
	NotEquals
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	StartsWith
	EndsWith
	Contains
	NotContains
	Matches
	NotMatches
	Exists
	NotExists
	IsBoolean
	IsNumber
	IsInteger
	IsFloat
	IsString
	IsCollection
	IsEmpty
	IsISODate
	IsIPv4
	IsIPv6
	IsUUID
)

var predicateNames = map[Predicate]string{
	Equals:             "==",
	NotEquals:          "!=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	StartsWith:         "startsWith",
	EndsWith:           "endsWith",
	Contains:           "contains",
	NotContains:        "notContains",
	Matches:            "matches",
	NotMatches:         "notMatches",
	Exists:             "exists",
	NotExists:          "notExists",
	IsBoolean:          "isBoolean",
	IsNumber:           "isNumber",
	IsInteger:          "isInteger",
	IsFloat:            "isFloat",
	IsString:           "isString",
	IsCollection:       "isCollection",
	IsEmpty:            "isEmpty",
	IsISODate:          "isIsoDate",
	IsIPv4:             "isIpv4",
	IsIPv6:             "isIpv6",
	IsUUID:             "isUuid",
}

// Word forms accepted in configuration alongside the operator symbols.
var predicateAliases = map[string]Predicate{
	"equals":             Equals,
	"eq":                 Equals,
	"notequals":          NotEquals,
	"ne":                 NotEquals,
	"greaterthan":        GreaterThan,
	"gt":                 GreaterThan,
	"greaterthanorequal": GreaterThanOrEqual,
	"gte":                GreaterThanOrEqual,
	"lessthan":           LessThan,
	"lt":                 LessThan,
	"lessthanorequal":    LessThanOrEqual,
	"lte":                LessThanOrEqual,
}

func (p Predicate) String() string {
	if s, ok := predicateNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Predicate(%d)", int(p))
}

// ParsePredicate accepts operator symbols ("==", ">=") and case-insensitive
// names ("startsWith", "isuuid", "gte").
func ParsePredicate(s string) (Predicate, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if p, ok := predicateAliases[key]; ok {
		return p, nil
	}
	for p, name := range predicateNames {
		if strings.ToLower(name) == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown predicate %q", s)
}

// apply evaluates the predicate against a value that was resolved.
func (p Predicate) apply(actual any, expected Value) bool {
	switch p {
	case Equals:
		return valuesEqual(actual, expected)
	case NotEquals:
		return !valuesEqual(actual, expected)
	case GreaterThan:
		return compare(actual, expected, func(c int) bool { return c > 0 })
	case GreaterThanOrEqual:
		return compare(actual, expected, func(c int) bool { return c >= 0 })
	case LessThan:
		return compare(actual, expected, func(c int) bool { return c < 0 })
	case LessThanOrEqual:
		return compare(actual, expected, func(c int) bool { return c <= 0 })
	case StartsWith:
		return stringOp(actual, expected, strings.HasPrefix)
	case EndsWith:
		return stringOp(actual, expected, strings.HasSuffix)
	case Contains:
		return stringOp(actual, expected, strings.Contains)
	case NotContains:
		return stringOp(actual, expected, func(a, e string) bool { return !strings.Contains(a, e) })
	case Matches:
		return regexOp(actual, expected, true)
	case NotMatches:
		return regexOp(actual, expected, false)
	case Exists:
		return true
	case NotExists:
		return false
	case IsBoolean:
		_, ok := actual.(bool)
		return ok
	case IsNumber:
		_, ok := toFloat(actual)
		return ok
	case IsInteger:
		_, ok := toInt(actual)
		return ok
	case IsFloat:
		_, ok := actual.(float64)
		return ok
	case IsString:
		_, ok := actual.(string)
		return ok
	case IsCollection:
		switch actual.(type) {
		case []any, map[string]any:
			return true
		}
		return false
	case IsEmpty:
		switch x := actual.(type) {
		case string:
			return x == ""
		case []any:
			return len(x) == 0
		case map[string]any:
			return len(x) == 0
		}
		return false
	case IsISODate:
		return formatOp(actual, isISODate)
	case IsIPv4:
		return formatOp(actual, func(s string) bool {
			a, err := netip.ParseAddr(s)
			return err == nil && a.Is4()
		})
	case IsIPv6:
		return formatOp(actual, func(s string) bool {
			a, err := netip.ParseAddr(s)
			return err == nil && a.Is6() && a.Zone() == ""
		})
	case IsUUID:
		return formatOp(actual, func(s string) bool {
			return uuid.Validate(s) == nil
		})
	}
	return false
}

func valuesEqual(actual any, expected Value) bool {
	switch expected.Kind {
	case StringValue:
		s, ok := actual.(string)
		return ok && s == expected.Str
	case BooleanValue:
		b, ok := actual.(bool)
		return ok && b == expected.Bool
	case NullValue:
		return actual == nil
	case IntegerValue:
		if i, ok := toInt(actual); ok {
			return i == expected.Int
		}
		f, ok := toFloat(actual)
		return ok && f == float64(expected.Int)
	case NumberValue:
		f, ok := toFloat(actual)
		return ok && f == expected.Num
	}
	return false
}

// compare orders actual against expected; both must be numeric.
func compare(actual any, expected Value, ok func(int) bool) bool {
	if expected.Kind == IntegerValue {
		if a, isInt := toInt(actual); isInt {
			return ok(cmpInt(a, expected.Int))
		}
	}
	a, aok := toFloat(actual)
	e, eok := expected.numeric()
	if !aok || !eok {
		return false
	}
	switch {
	case a < e:
		return ok(-1)
	case a > e:
		return ok(1)
	default:
		return ok(0)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func stringOp(actual any, expected Value, op func(a, e string) bool) bool {
	a, ok := actual.(string)
	if !ok || expected.Kind != StringValue {
		return false
	}
	return op(a, expected.Str)
}

func regexOp(actual any, expected Value, want bool) bool {
	a, ok := actual.(string)
	if !ok || expected.Kind != StringValue {
		return false
	}
	re, err := regexp.Compile(expected.Str)
	if err != nil {
		return false
	}
	return re.MatchString(a) == want
}

func formatOp(actual any, valid func(string) bool) bool {
	s, ok := actual.(string)
	return ok && valid(s)
}

func isISODate(s string) bool {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
